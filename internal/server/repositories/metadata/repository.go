// Package metadata stores entity, attribute and relationship definitions.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

type Repository interface {
	GetEntity(ctx context.Context, logicalName string) (*models.Entity, error)
	GetEntityBySet(ctx context.Context, entitySetName string) (*models.Entity, error)
	// ListOneToMany returns the relationships in which referencedEntity is
	// the "one" side.
	ListOneToMany(ctx context.Context, referencedEntity string) ([]common.RelationshipDefinition, error)
}
