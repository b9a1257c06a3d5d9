package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes from crypto/rand. It panics only
// if the system random source is broken.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
