// Package cryptox holds the key derivation used to store API client secrets.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// DeriveKey stretches secret with argon2id.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// Verifier is what gets persisted instead of a client secret.
type Verifier struct {
	Salt []byte
	Hash []byte
}

// NewVerifier derives a verifier for secret with a fresh random salt.
func NewVerifier(secret []byte) Verifier {
	salt := common.GenerateRandByteArray(SaltSize)
	return Verifier{Salt: salt, Hash: DeriveKey(secret, salt)}
}

// Matches reports whether secret produces the stored hash. The comparison
// runs in constant time.
func (v Verifier) Matches(secret []byte) bool {
	if len(v.Salt) == 0 || len(v.Hash) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(DeriveKey(secret, v.Salt), v.Hash) == 1
}
