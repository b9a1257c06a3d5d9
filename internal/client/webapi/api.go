// Package webapi is the client transport to the entity store. It exposes the
// generic record CRUD and binary patch capabilities the attachment engine
// consumes, hiding URL layout, authentication and metadata caching.
package webapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/netx"
)

// Record is one row returned by the store, keyed by attribute name.
type Record map[string]any

// Query is a restricted OData-style list query.
type Query struct {
	Select  []string
	Filter  string
	OrderBy string
}

// Encode renders q as a URL query string (without the leading '?').
func (q Query) Encode() string {
	v := url.Values{}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	return v.Encode()
}

// QuoteLiteral renders s as a quoted $filter string literal, doubling
// embedded quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// API is the set of entity store capabilities used by the client.
type API interface {
	// LookupEntityMetadata returns the definition of an entity type.
	LookupEntityMetadata(ctx context.Context, logicalName string) (*common.EntityDefinition, error)
	ListRecords(ctx context.Context, entitySet string, q Query) ([]Record, error)
	// CreateRecord creates a record and returns its id.
	CreateRecord(ctx context.Context, entitySet string, fields Record) (string, error)
	// PatchBinaryAttribute uploads content into a file-valued attribute.
	// onProgress observes in-flight progress only (never 100).
	PatchBinaryAttribute(ctx context.Context, entitySet, id, attribute string, content []byte, fileName string, onProgress netx.ProgressFunc) error
	DeleteRecord(ctx context.Context, entitySet, id string) error
	Ping(ctx context.Context) error
	Close() error
}
