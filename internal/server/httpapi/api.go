// Package httpapi exposes the entity store over HTTP: token issuance, entity
// metadata, record CRUD and binary file attributes, plus health and metrics.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
	"github.com/dmitrijs2005/dropzone/internal/server/query"
	"github.com/dmitrijs2005/dropzone/internal/server/services"
)

type Authenticator interface {
	IssueToken(ctx context.Context, clientID string, secret []byte) (string, time.Duration, error)
	ValidateToken(token string) (string, error)
}

type Definitions interface {
	Definition(ctx context.Context, logicalName string) (*common.EntityDefinition, error)
}

type DataStore interface {
	List(ctx context.Context, set string, opts query.Options) ([]map[string]any, error)
	Get(ctx context.Context, set, id string, sel []string) (map[string]any, error)
	Create(ctx context.Context, set string, body map[string]any) (string, error)
	UploadFile(ctx context.Context, set, id, attribute string, up services.Upload) error
	Download(ctx context.Context, set, id, attribute string) (*models.FileContent, []byte, error)
	Delete(ctx context.Context, set, id string) error
}

var (
	_ Authenticator = (*services.AuthService)(nil)
	_ Definitions   = (*services.MetadataService)(nil)
	_ DataStore     = (*services.DataService)(nil)
)
