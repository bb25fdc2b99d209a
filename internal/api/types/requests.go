package types

import "github.com/graphwarehouse/engine/internal/models"

type ContainerCreateRequest struct {
	Name                      string `json:"name" validate:"required"`
	Description               string `json:"description"`
	OntologyVersioningEnabled bool   `json:"ontology_versioning_enabled"`
	DataVersioningEnabled     bool   `json:"data_versioning_enabled"`
}

// MetatypeRequest creates or updates a metatype. On update, empty fields keep
// their stored values, a nil ParentID keeps the parent and an empty one
// detaches it, and a non-nil Keys replaces the key set.
type MetatypeRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	ParentID    *string                `json:"parent_id" validate:"omitempty,uuid"`
	Keys        []models.KeyDefinition `json:"keys"`
}

type RelationshipRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Keys        []models.KeyDefinition `json:"keys"`
}

type PairRequest struct {
	Name                  string `json:"name"`
	Description           string `json:"description"`
	OriginMetatypeID      string `json:"origin_metatype_id" validate:"omitempty,uuid"`
	DestinationMetatypeID string `json:"destination_metatype_id" validate:"omitempty,uuid"`
	RelationshipID        string `json:"relationship_id" validate:"omitempty,uuid"`
	RelationshipType      string `json:"relationship_type" validate:"omitempty,oneof=many:many one:one one:many many:one"`
}

// ValidatePropertiesRequest is a node payload checked against a metatype.
type ValidatePropertiesRequest struct {
	Properties map[string]any `json:"properties" validate:"required"`
}
