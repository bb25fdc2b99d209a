package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/schema"
	"gorm.io/gorm"
)

// DataType is the stored type name of a key.
type DataType string

const (
	DataTypeNumber      DataType = "number"
	DataTypeString      DataType = "string"
	DataTypeBoolean     DataType = "boolean"
	DataTypeDate        DataType = "date"
	DataTypeEnumeration DataType = "enumeration"
	DataTypeList        DataType = "list"
	DataTypeFile        DataType = "file"
	DataTypeUnknown     DataType = "unknown"
)

// KeyValidation holds the per-key constraints checked after decoding.
type KeyValidation struct {
	Regex string `json:"regex"`
	Min   *int   `json:"min,omitempty"`
	Max   *int   `json:"max,omitempty"`
}

// KeyDefinition is the part of a key shared by metatype and relationship keys.
type KeyDefinition struct {
	Name         string         `gorm:"not null" json:"name" validate:"required"`
	PropertyName string         `gorm:"not null" json:"property_name" validate:"required,propertyname"`
	Description  string         `gorm:"type:text" json:"description"`
	DataType     DataType       `gorm:"type:varchar(32);not null" json:"data_type" validate:"required,datatype"`
	Required     bool           `gorm:"not null;default:false" json:"required"`
	Options      []string       `gorm:"serializer:json;type:jsonb" json:"options,omitempty" validate:"omitempty,dive,required"`
	DefaultValue any            `gorm:"serializer:json;type:jsonb" json:"default_value,omitempty"`
	Validation   *KeyValidation `gorm:"serializer:json;type:jsonb" json:"validation,omitempty"`
}

// Field converts the definition into a compiler field.
func (k KeyDefinition) Field() schema.Field {
	f := schema.Field{
		Name:     k.PropertyName,
		Kind:     schema.KindOf(string(k.DataType)),
		Required: k.Required,
		Options:  k.Options,
		Default:  k.DefaultValue,
	}
	if k.Validation != nil {
		f.Check = &schema.Constraint{Regex: k.Validation.Regex, Min: k.Validation.Min, Max: k.Validation.Max}
	}
	return f
}

// MetatypeKey is a typed property of a Metatype.
type MetatypeKey struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MetatypeID  uuid.UUID `gorm:"type:uuid;not null;index" json:"metatype_id"`
	ContainerID uuid.UUID `gorm:"type:uuid;not null;index" json:"container_id"`
	KeyDefinition
	Archived   bool           `gorm:"not null;default:false" json:"archived"`
	CreatedBy  string         `json:"created_by,omitempty"`
	ModifiedBy string         `json:"modified_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MetatypeKey) TableName() string { return "metatype_keys" }

func (k *MetatypeKey) Validate() error { return validateStruct(k) }

// MetatypeRelationshipKey is a typed property of a MetatypeRelationship.
type MetatypeRelationshipKey struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MetatypeRelationshipID uuid.UUID `gorm:"column:metatype_relationship_id;type:uuid;not null;index" json:"metatype_relationship_id"`
	ContainerID            uuid.UUID `gorm:"type:uuid;not null;index" json:"container_id"`
	KeyDefinition
	Archived   bool           `gorm:"not null;default:false" json:"archived"`
	CreatedBy  string         `json:"created_by,omitempty"`
	ModifiedBy string         `json:"modified_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MetatypeRelationshipKey) TableName() string { return "metatype_relationship_keys" }

func (k *MetatypeRelationshipKey) Validate() error { return validateStruct(k) }

// Fields converts keys into compiler fields, preserving order.
func Fields[K MetatypeKey | MetatypeRelationshipKey](keys []K) []schema.Field {
	out := make([]schema.Field, 0, len(keys))
	for _, k := range keys {
		switch v := any(k).(type) {
		case MetatypeKey:
			out = append(out, v.Field())
		case MetatypeRelationshipKey:
			out = append(out, v.Field())
		}
	}
	return out
}
