// Package clients stores registered API clients and their secret verifiers.
package clients

import (
	"context"

	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, clientID string) (*models.APIClient, error)
	Upsert(ctx context.Context, c *models.APIClient) error
}
