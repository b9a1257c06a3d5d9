// Package services contains the entity store business logic. This file
// implements AuthService, which registers API clients and exchanges their
// credentials for short-lived JWTs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/cryptox"
	"github.com/dmitrijs2005/dropzone/internal/server/auth"
	"github.com/dmitrijs2005/dropzone/internal/server/config"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/repomanager"
)

// AuthService verifies client credentials and tokens.
type AuthService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// IssueToken checks the client secret and returns a signed access token with
// its lifetime. Unknown clients and wrong secrets both yield
// common.ErrorUnauthorized.
func (s *AuthService) IssueToken(ctx context.Context, clientID string, secret []byte) (string, time.Duration, error) {
	if clientID == "" || len(secret) == 0 {
		return "", 0, common.ErrorUnauthorized
	}

	client, err := s.repomanager.Clients(s.db).Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", 0, common.ErrorUnauthorized
		}
		return "", 0, fmt.Errorf("error searching client: %w", err)
	}

	v := cryptox.Verifier{Salt: client.SecretSalt, Hash: client.SecretHash}
	if !v.Matches(secret) {
		return "", 0, common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(clientID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", 0, fmt.Errorf("error generating token: %w", err)
	}
	return token, s.accessTokenValidityDuration, nil
}

// ValidateToken returns the client id carried by a valid token.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return auth.GetClientIDFromToken(token, s.jwtSecret)
}

// EnsureClient registers clientID with secret, replacing any earlier secret.
func (s *AuthService) EnsureClient(ctx context.Context, clientID string, secret []byte) error {
	if clientID == "" || len(secret) == 0 {
		return fmt.Errorf("client id and secret are required: %w", common.ErrorValidation)
	}
	v := cryptox.NewVerifier(secret)
	return s.repomanager.Clients(s.db).Upsert(ctx, &models.APIClient{
		ClientID:   clientID,
		SecretSalt: v.Salt,
		SecretHash: v.Hash,
	})
}
