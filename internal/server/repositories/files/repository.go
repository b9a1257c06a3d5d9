// Package files keeps the metadata of uploaded file attribute payloads.
package files

import (
	"context"

	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

type Repository interface {
	// Upsert replaces any earlier upload for the same record attribute.
	Upsert(ctx context.Context, f *models.FileContent) error
	Get(ctx context.Context, recordID, attribute string) (*models.FileContent, error)
	ListByRecord(ctx context.Context, recordID string) ([]*models.FileContent, error)
}
