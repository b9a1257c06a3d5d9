// Package models defines client-side data models for the attachment engine.
package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/common"
)

// RelationshipBinding is the resolved relationship between a parent record
// type and its attachment (child) record type. It is produced once and never
// mutated afterwards.
type RelationshipBinding struct {
	// ParentEntity is the logical name of the parent record type.
	ParentEntity string
	// ChildEntity is the logical name of the attachment record type.
	ChildEntity string
	// ParentLookupAttribute is the attribute on the child that references the parent.
	ParentLookupAttribute string
	// ChildEntityCollectionName addresses child records in URLs.
	ChildEntityCollectionName string

	// ParentEntityCollectionName addresses parent records in bind expressions.
	// Defaults to ParentEntity + "s".
	ParentEntityCollectionName string
	// ChildNavigationProperty is the single-valued navigation property used to
	// bind a new child to its parent. Defaults to ParentLookupAttribute.
	ChildNavigationProperty string
	// ChildIDAttribute is the primary key attribute of the child. Defaults to
	// ChildEntity + "id".
	ChildIDAttribute string
}

// Valid reports whether every required field is set. Remote operations must
// not be attempted with an invalid binding.
func (b *RelationshipBinding) Valid() bool {
	return b != nil &&
		b.ParentEntity != "" &&
		b.ChildEntity != "" &&
		b.ParentLookupAttribute != "" &&
		b.ChildEntityCollectionName != ""
}

func (b *RelationshipBinding) IDAttribute() string {
	if b.ChildIDAttribute != "" {
		return b.ChildIDAttribute
	}
	return strings.ToLower(b.ChildEntity) + "id"
}

func (b *RelationshipBinding) parentCollection() string {
	if b.ParentEntityCollectionName != "" {
		return b.ParentEntityCollectionName
	}
	return strings.ToLower(b.ParentEntity) + "s"
}

func (b *RelationshipBinding) navigationProperty() string {
	if b.ChildNavigationProperty != "" {
		return b.ChildNavigationProperty
	}
	return b.ParentLookupAttribute
}

// BindExpression returns the field name and value that associate a new child
// record with the given parent, e.g. "project@odata.bind": "/projects(P1)".
func (b *RelationshipBinding) BindExpression(parentID string) (string, string) {
	return b.navigationProperty() + common.BindSuffix, fmt.Sprintf("/%s(%s)", b.parentCollection(), parentID)
}
