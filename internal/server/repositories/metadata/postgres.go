package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/dbx"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const entityColumns = `logical_name, entity_set_name, primary_id_attribute, primary_name_attribute`

func (r *PostgresRepository) GetEntity(ctx context.Context, logicalName string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE logical_name = $1`
	return r.getEntity(ctx, query, logicalName)
}

func (r *PostgresRepository) GetEntityBySet(ctx context.Context, entitySetName string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE entity_set_name = $1`
	return r.getEntity(ctx, query, entitySetName)
}

func (r *PostgresRepository) getEntity(ctx context.Context, query string, arg string) (*models.Entity, error) {
	e := &models.Entity{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&e.LogicalName, &e.EntitySetName, &e.PrimaryIdAttribute, &e.PrimaryNameAttribute)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, arg)
		}
		return nil, fmt.Errorf("failed to select entity: %w", err)
	}

	attrs, err := r.listAttributes(ctx, e.LogicalName)
	if err != nil {
		return nil, err
	}
	e.Attributes = attrs
	return e, nil
}

func (r *PostgresRepository) listAttributes(ctx context.Context, entity string) ([]models.Attribute, error) {
	query := `SELECT entity, logical_name, attribute_type, COALESCE(target_entity, '')
		FROM attributes WHERE entity = $1 ORDER BY logical_name`

	rows, err := r.db.QueryContext(ctx, query, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to select attributes: %w", err)
	}
	defer rows.Close()

	var result []models.Attribute
	for rows.Next() {
		var a models.Attribute
		var typ string
		if err := rows.Scan(&a.Entity, &a.LogicalName, &typ, &a.Target); err != nil {
			return nil, err
		}
		a.Type = models.AttributeType(typ)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListOneToMany(ctx context.Context, referencedEntity string) ([]common.RelationshipDefinition, error) {
	query := `SELECT schema_name, referenced_entity, referenced_attribute, referenced_nav,
			referencing_entity, referencing_attribute, referencing_nav
		FROM relationships WHERE referenced_entity = $1 ORDER BY schema_name`

	rows, err := r.db.QueryContext(ctx, query, referencedEntity)
	if err != nil {
		return nil, fmt.Errorf("failed to select relationships: %w", err)
	}
	defer rows.Close()

	result := []common.RelationshipDefinition{}
	for rows.Next() {
		var d common.RelationshipDefinition
		if err := rows.Scan(&d.SchemaName, &d.ReferencedEntity, &d.ReferencedAttribute, &d.ReferencedEntityNavigationPropertyName,
			&d.ReferencingEntity, &d.ReferencingAttribute, &d.ReferencingEntityNavigationPropertyName); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
