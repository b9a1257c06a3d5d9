// Package resolver turns a configured relationship name into the concrete
// entity and attribute identifiers the attachment engine works with.
package resolver

import (
	"context"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/logging"
)

// MetadataSource looks up entity definitions.
type MetadataSource interface {
	LookupEntityMetadata(ctx context.Context, logicalName string) (*common.EntityDefinition, error)
}

type Resolver struct {
	source MetadataSource
	log    logging.Logger
}

func New(source MetadataSource, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver{source: source, log: log.With("module", "resolver")}
}

// Resolve finds the relationship named schemaName among the one-to-many
// relationships of parentEntity and returns the binding for it.
//
// A nil result means the attachment feature is disabled for this
// configuration; lookup failures are logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, schemaName, parentEntity string) *models.RelationshipBinding {
	if schemaName == "" || parentEntity == "" {
		r.log.Warn(ctx, "relationship or parent entity not configured")
		return nil
	}

	parent, err := r.source.LookupEntityMetadata(ctx, parentEntity)
	if err != nil || parent == nil {
		r.log.Error(ctx, "failed to get metadata for entity", "entity", parentEntity, "error", err)
		return nil
	}

	var rel *common.RelationshipDefinition
	for i := range parent.OneToManyRelationships {
		if parent.OneToManyRelationships[i].SchemaName == schemaName {
			rel = &parent.OneToManyRelationships[i]
			break
		}
	}
	if rel == nil {
		r.log.Warn(ctx, "relationship not found", "relationship", schemaName, "entity", parentEntity)
		return nil
	}

	child, err := r.source.LookupEntityMetadata(ctx, rel.ReferencingEntity)
	if err != nil || child == nil {
		r.log.Error(ctx, "failed to get metadata for entity", "entity", rel.ReferencingEntity, "error", err)
		return nil
	}

	b := &models.RelationshipBinding{
		ParentEntity:               rel.ReferencedEntity,
		ChildEntity:                rel.ReferencingEntity,
		ParentLookupAttribute:      rel.ReferencingAttribute,
		ChildEntityCollectionName:  child.EntitySetName,
		ParentEntityCollectionName: parent.EntitySetName,
		ChildNavigationProperty:    rel.ReferencingEntityNavigationPropertyName,
		ChildIDAttribute:           child.PrimaryIdAttribute,
	}
	if b.ParentEntity == "" {
		b.ParentEntity = parent.LogicalName
	}
	if !b.Valid() {
		r.log.Warn(ctx, "relationship metadata incomplete", "relationship", schemaName)
		return nil
	}

	r.log.Info(ctx, "relationship resolved",
		"relationship", schemaName,
		"child_entity", b.ChildEntity,
		"lookup", b.ParentLookupAttribute,
		"collection", b.ChildEntityCollectionName)
	return b
}
