// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"
)

type AttributeType string

const (
	AttrString   AttributeType = "string"
	AttrInteger  AttributeType = "integer"
	AttrDateTime AttributeType = "datetime"
	AttrLookup   AttributeType = "lookup"
	AttrFile     AttributeType = "file"
)

// Attribute describes one column of an entity.
type Attribute struct {
	Entity      string
	LogicalName string
	Type        AttributeType
	// Target is the referenced entity of a lookup.
	Target string
}

// Entity is the stored definition of a record type together with its
// attributes.
type Entity struct {
	LogicalName          string
	EntitySetName        string
	PrimaryIdAttribute   string
	PrimaryNameAttribute string
	Attributes           []Attribute
}

// Attribute returns the attribute named name, case-insensitively.
func (e *Entity) Attribute(name string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if strings.EqualFold(a.LogicalName, name) {
			return a, true
		}
	}
	return Attribute{}, false
}

// Record is one row of any entity. Lookups are stored in Data under the
// attribute name with the referenced id as value; file attributes hold the
// uploaded file name.
type Record struct {
	ID         string
	Entity     string
	Data       map[string]any
	CreatedOn  time.Time
	ModifiedOn time.Time
}
