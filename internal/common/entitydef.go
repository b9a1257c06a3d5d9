package common

// EntityDefinition is the metadata document describing one record type, as
// served by the entity store and consumed by the relationship resolver.
type EntityDefinition struct {
	LogicalName          string `json:"LogicalName"`
	EntitySetName        string `json:"EntitySetName"`
	PrimaryIdAttribute   string `json:"PrimaryIdAttribute"`
	PrimaryNameAttribute string `json:"PrimaryNameAttribute"`

	// OneToManyRelationships lists relationships where this entity is the
	// referenced (parent) side.
	OneToManyRelationships []RelationshipDefinition `json:"OneToManyRelationships"`
}

// RelationshipDefinition describes a one-to-many relationship.
type RelationshipDefinition struct {
	SchemaName                             string `json:"SchemaName"`
	ReferencedEntity                       string `json:"ReferencedEntity"`
	ReferencedAttribute                    string `json:"ReferencedAttribute"`
	ReferencedEntityNavigationPropertyName string `json:"ReferencedEntityNavigationPropertyName"`
	ReferencingEntity                      string `json:"ReferencingEntity"`
	ReferencingAttribute                   string `json:"ReferencingAttribute"`
	ReferencingEntityNavigationPropertyName string `json:"ReferencingEntityNavigationPropertyName"`
}

// ErrorBody is the JSON error envelope returned by the entity store.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
