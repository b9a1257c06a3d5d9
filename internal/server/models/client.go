package models

import "time"

// APIClient is a registered consumer of the data API. Only an argon2id
// verifier of its secret is kept.
type APIClient struct {
	ClientID   string
	SecretSalt []byte
	SecretHash []byte
	CreatedAt  time.Time
}
