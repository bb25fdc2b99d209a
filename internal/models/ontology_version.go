package models

import (
	"time"

	"github.com/google/uuid"
)

// VersionStatus is the lifecycle state of an OntologyVersion.
type VersionStatus string

const (
	VersionGenerating VersionStatus = "generating"
	VersionReady      VersionStatus = "ready"
	VersionPublished  VersionStatus = "published"
	VersionError      VersionStatus = "error"
)

// OntologyVersion is a named, statused snapshot of a container's ontology.
type OntologyVersion struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID uuid.UUID     `gorm:"type:uuid;not null;index" json:"container_id" validate:"required"`
	Name        string        `gorm:"not null" json:"name" validate:"required"`
	Description string        `gorm:"type:text" json:"description"`
	Status      VersionStatus `gorm:"type:varchar(16);not null;index" json:"status" validate:"required,oneof=generating ready published error"`
	// ErrorMessage is only set while Status is error.
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedBy    string     `json:"created_by,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (OntologyVersion) TableName() string { return "ontology_versions" }

func (v *OntologyVersion) Validate() error { return validateStruct(v) }

// VersionPreference is the order in which an existing version is picked when
// an update reuses one instead of creating it.
var VersionPreference = []VersionStatus{VersionPublished, VersionReady, VersionError}
