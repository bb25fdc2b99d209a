package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/schema"
	"gorm.io/gorm"
)

// Metatype is a user-defined entity class. Its instances are Nodes.
type Metatype struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"container_id" validate:"required"`
	OntologyVersion *uuid.UUID `gorm:"column:ontology_version;type:uuid" json:"ontology_version,omitempty"`
	Name            string     `gorm:"not null" json:"name" validate:"required"`
	Description     string     `gorm:"type:text" json:"description"`
	// ParentID is read from metatypes_view; writes go to the inheritance table.
	ParentID   *uuid.UUID     `gorm:"->;type:uuid" json:"parent_id,omitempty"`
	Archived   bool           `gorm:"not null;default:false" json:"archived"`
	CreatedBy  string         `json:"created_by,omitempty"`
	ModifiedBy string         `json:"modified_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Keys          []MetatypeKey              `gorm:"-" json:"keys,omitempty"`
	Relationships []MetatypeRelationshipPair `gorm:"-" json:"relationships,omitempty"`

	removedKeys  []uuid.UUID
	detachParent bool
}

func (Metatype) TableName() string { return "metatypes" }

func (m *Metatype) Validate() error { return validateStruct(m) }

// SetParent makes m inherit from parent.
func (m *Metatype) SetParent(parent uuid.UUID) {
	m.ParentID = &parent
	m.detachParent = false
}

// DetachParent removes any inheritance link on the next save.
func (m *Metatype) DetachParent() {
	m.ParentID = nil
	m.detachParent = true
}

// ParentDetached reports whether DetachParent was called since the last save.
func (m *Metatype) ParentDetached() bool { return m.detachParent }

// AddKey appends keys, replacing any existing key with the same id or name.
func (m *Metatype) AddKey(keys ...MetatypeKey) {
	for _, k := range keys {
		i := slices.IndexFunc(m.Keys, func(e MetatypeKey) bool {
			return (k.ID != uuid.Nil && e.ID == k.ID) || e.Name == k.Name
		})
		if i >= 0 {
			if k.ID == uuid.Nil {
				k.ID = m.Keys[i].ID
			}
			m.Keys[i] = k
			continue
		}
		m.Keys = append(m.Keys, k)
	}
}

// RemoveKey drops keys by id and stages the persisted ones for deletion.
func (m *Metatype) RemoveKey(ids ...uuid.UUID) {
	m.Keys = slices.DeleteFunc(m.Keys, func(k MetatypeKey) bool {
		if !slices.Contains(ids, k.ID) {
			return false
		}
		m.removedKeys = append(m.removedKeys, k.ID)
		return true
	})
}

// ReplaceKeys swaps the key set. Previously loaded keys absent from the new
// set, by id and by name, are staged for deletion.
func (m *Metatype) ReplaceKeys(keys []MetatypeKey) {
	for _, old := range m.Keys {
		if old.ID == uuid.Nil {
			continue
		}
		kept := slices.ContainsFunc(keys, func(k MetatypeKey) bool { return k.ID == old.ID || k.Name == old.Name })
		if !kept {
			m.removedKeys = append(m.removedKeys, old.ID)
		}
	}
	m.Keys = keys
}

// RemovedKeys returns the key ids staged for deletion.
func (m *Metatype) RemovedKeys() []uuid.UUID { return m.removedKeys }

// ResetStaging clears staged key removals and parent detachment after a save.
func (m *Metatype) ResetStaging() {
	m.removedKeys = nil
	m.detachParent = false
}

// Fields returns the compiler fields of the loaded keys, including any
// inherited ones the caller loaded.
func (m *Metatype) Fields() []schema.Field { return Fields(m.Keys) }

// ValidateAndTransformProperties checks a node payload against the metatype's
// keys and returns it with defaults applied.
func (m *Metatype) ValidateAndTransformProperties(input map[string]any) (map[string]any, error) {
	return schema.ValidateAndTransform(m.Fields(), input)
}

// MetatypeRelationship is a relationship class. It owns keys but has no
// inheritance.
type MetatypeRelationship struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"container_id" validate:"required"`
	OntologyVersion *uuid.UUID     `gorm:"column:ontology_version;type:uuid" json:"ontology_version,omitempty"`
	Name            string         `gorm:"not null" json:"name" validate:"required"`
	Description     string         `gorm:"type:text" json:"description"`
	Archived        bool           `gorm:"not null;default:false" json:"archived"`
	CreatedBy       string         `json:"created_by,omitempty"`
	ModifiedBy      string         `json:"modified_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Keys []MetatypeRelationshipKey `gorm:"-" json:"keys,omitempty"`

	removedKeys []uuid.UUID
}

func (MetatypeRelationship) TableName() string { return "metatype_relationships" }

func (r *MetatypeRelationship) Validate() error { return validateStruct(r) }

// RemoveKey drops keys by id and stages the persisted ones for deletion.
func (r *MetatypeRelationship) RemoveKey(ids ...uuid.UUID) {
	r.Keys = slices.DeleteFunc(r.Keys, func(k MetatypeRelationshipKey) bool {
		if !slices.Contains(ids, k.ID) {
			return false
		}
		r.removedKeys = append(r.removedKeys, k.ID)
		return true
	})
}

func (r *MetatypeRelationship) RemovedKeys() []uuid.UUID { return r.removedKeys }

func (r *MetatypeRelationship) ResetStaging() { r.removedKeys = nil }

func (r *MetatypeRelationship) Fields() []schema.Field { return Fields(r.Keys) }

// ValidateAndTransformProperties checks an edge payload against the
// relationship's keys.
func (r *MetatypeRelationship) ValidateAndTransformProperties(input map[string]any) (map[string]any, error) {
	return schema.ValidateAndTransform(r.Fields(), input)
}

// RelationshipType is the cardinality of a pair.
type RelationshipType string

const (
	ManyToMany RelationshipType = "many:many"
	OneToOne   RelationshipType = "one:one"
	OneToMany  RelationshipType = "one:many"
	ManyToOne  RelationshipType = "many:one"
)

// MetatypeRelationshipPair is a directed edge class between two metatypes.
type MetatypeRelationshipPair struct {
	ID                    uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"container_id" validate:"required"`
	OntologyVersion       *uuid.UUID       `gorm:"column:ontology_version;type:uuid" json:"ontology_version,omitempty"`
	Name                  string           `gorm:"not null" json:"name" validate:"required"`
	Description           string           `gorm:"type:text" json:"description"`
	OriginMetatypeID      uuid.UUID        `gorm:"column:origin_metatype_id;type:uuid;not null" json:"origin_metatype_id" validate:"required"`
	DestinationMetatypeID uuid.UUID        `gorm:"column:destination_metatype_id;type:uuid;not null" json:"destination_metatype_id" validate:"required"`
	RelationshipID        uuid.UUID        `gorm:"column:relationship_id;type:uuid;not null" json:"relationship_id" validate:"required"`
	RelationshipType      RelationshipType `gorm:"type:varchar(16);not null" json:"relationship_type" validate:"required,oneof=many:many one:one one:many many:one"`
	Archived              bool             `gorm:"not null;default:false" json:"archived"`
	CreatedBy             string           `json:"created_by,omitempty"`
	ModifiedBy            string           `json:"modified_by,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	DeletedAt             gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (MetatypeRelationshipPair) TableName() string { return "metatype_relationship_pairs" }

func (p *MetatypeRelationshipPair) Validate() error { return validateStruct(p) }
