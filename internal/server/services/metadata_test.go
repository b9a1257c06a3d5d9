package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_Definition(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := NewMetadataService(db, newFakeRepoManager())

	def, err := s.Definition(context.Background(), "project")
	require.NoError(t, err)
	assert.Equal(t, "projects", def.EntitySetName)
	require.Len(t, def.OneToManyRelationships, 1)
	assert.Equal(t, "project_attachments", def.OneToManyRelationships[0].SchemaName)

	child, err := s.Definition(context.Background(), "attachment")
	require.NoError(t, err)
	assert.Empty(t, child.OneToManyRelationships)
	assert.NotNil(t, child.OneToManyRelationships)
}

func TestMetadata_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := NewMetadataService(db, newFakeRepoManager())

	_, err := s.Definition(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrUnknownEntity)
}
