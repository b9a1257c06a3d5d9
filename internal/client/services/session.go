package services

import (
	"context"
	"fmt"
)

// Connection is the part of the transport the session service drives.
type Connection interface {
	Authenticate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// SessionService handles sign-in and liveness of the store connection.
type SessionService interface {
	Login(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type sessionService struct {
	conn Connection
}

func NewSessionService(conn Connection) SessionService {
	return &sessionService{conn: conn}
}

// Login obtains a fresh access token.
func (s *sessionService) Login(ctx context.Context) error {
	if err := s.conn.Authenticate(ctx); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	return nil
}

// Ping proxies a liveness check to the underlying connection.
func (s *sessionService) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *sessionService) Close(ctx context.Context) error {
	return s.conn.Close()
}
