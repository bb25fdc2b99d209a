package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContainerConfig toggles versioning behaviour for a container.
type ContainerConfig struct {
	OntologyVersioningEnabled bool `json:"ontology_versioning_enabled"`
	DataVersioningEnabled     bool `json:"data_versioning_enabled"`
}

// Container groups one ontology and the data stored against it.
type Container struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string          `gorm:"not null;uniqueIndex" json:"name" validate:"required"`
	Description string          `gorm:"type:text" json:"description"`
	Config      ContainerConfig `gorm:"serializer:json;type:jsonb" json:"config"`
	Archived    bool            `gorm:"not null;default:false" json:"archived"`
	CreatedBy   string          `json:"created_by,omitempty"`
	ModifiedBy  string          `json:"modified_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Container) TableName() string { return "containers" }

func (c *Container) Validate() error { return validateStruct(c) }

// AlertType classifies a container alert.
type AlertType string

const (
	AlertInfo    AlertType = "info"
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
)

// ContainerAlert is a durable, user-facing notice attached to a container.
type ContainerAlert struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"container_id" validate:"required"`
	Type           AlertType         `gorm:"type:varchar(16);not null" json:"type" validate:"required,oneof=info warning error"`
	Message        string            `gorm:"type:text;not null" json:"message" validate:"required"`
	Meta           datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedBy      string            `json:"created_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string            `json:"acknowledged_by,omitempty"`
}

func (ContainerAlert) TableName() string { return "container_alerts" }

func (a *ContainerAlert) Validate() error { return validateStruct(a) }
