package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Node is an instance of a Metatype. The ontology layer only reads nodes to
// prove a metatype or key is unreferenced before deleting it.
type Node struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"container_id"`
	MetatypeID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"metatype_id"`
	Properties  datatypes.JSON `gorm:"type:jsonb" json:"properties"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Node) TableName() string { return "nodes" }

// Edge is an instance of a MetatypeRelationshipPair.
type Edge struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContainerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"container_id"`
	RelationshipPairID uuid.UUID      `gorm:"column:relationship_pair_id;type:uuid;not null;index" json:"relationship_pair_id"`
	OriginID           uuid.UUID      `gorm:"type:uuid;not null" json:"origin_id"`
	DestinationID      uuid.UUID      `gorm:"type:uuid;not null" json:"destination_id"`
	Properties         datatypes.JSON `gorm:"type:jsonb" json:"properties"`
	CreatedAt          time.Time      `json:"created_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Edge) TableName() string { return "edges" }
