package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/repomanager"
)

// MetadataService serves entity definitions.
type MetadataService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMetadataService(db *sql.DB, m repomanager.RepositoryManager) *MetadataService {
	return &MetadataService{db: db, repomanager: m}
}

// Definition returns the entity definition of logicalName together with the
// one-to-many relationships in which it is the referenced side.
func (s *MetadataService) Definition(ctx context.Context, logicalName string) (*common.EntityDefinition, error) {
	repo := s.repomanager.Metadata(s.db)

	e, err := repo.GetEntity(ctx, logicalName)
	if err != nil {
		return nil, err
	}

	rels, err := repo.ListOneToMany(ctx, e.LogicalName)
	if err != nil {
		return nil, err
	}

	return &common.EntityDefinition{
		LogicalName:            e.LogicalName,
		EntitySetName:          e.EntitySetName,
		PrimaryIdAttribute:     e.PrimaryIdAttribute,
		PrimaryNameAttribute:   e.PrimaryNameAttribute,
		OneToManyRelationships: rels,
	}, nil
}
