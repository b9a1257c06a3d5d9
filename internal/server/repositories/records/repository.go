// Package records persists rows of every entity in a single JSONB backed
// table.
package records

import (
	"context"

	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

// System columns that may be used in filters and ordering next to data
// attributes.
const (
	ColumnID         = "id"
	ColumnCreatedOn  = "created_on"
	ColumnModifiedOn = "modified_on"
)

// Filter is an equality condition. Exactly one of Column (a system column)
// or Attribute (a data key) is set. Null matches a missing or null value.
type Filter struct {
	Column    string
	Attribute string
	Value     string
	Null      bool
}

// Order sorts by a system column or a data attribute. Numeric compares data
// values as numbers.
type Order struct {
	Column    string
	Attribute string
	Desc      bool
	Numeric   bool
}

type ListQuery struct {
	Entity  string
	Filters []Filter
	// Order defaults to created_on descending when empty.
	Order []Order
	// Limit of zero means no limit.
	Limit int
}

type Repository interface {
	Create(ctx context.Context, rec *models.Record) error
	Get(ctx context.Context, entity, id string) (*models.Record, error)
	List(ctx context.Context, q ListQuery) ([]*models.Record, error)
	SetField(ctx context.Context, entity, id, attribute string, value any) error
	Delete(ctx context.Context, entity, id string) error
}
