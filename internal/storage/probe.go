package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"gorm.io/gorm"
)

// probeLimit caps how many rows an existence probe reads.
const probeLimit = 10

// DataProbe answers whether instance data references an ontology element.
// Archived nodes and edges count: they still point at the element.
type DataProbe struct {
	db *gorm.DB
}

func NewDataProbe(db *gorm.DB) *DataProbe { return &DataProbe{db: db} }

// NodesForMetatype reports whether any node is typed by metatypeID.
func (p *DataProbe) NodesForMetatype(ctx context.Context, tx Tx, metatypeID uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	err := conn(ctx, p.db, tx).Unscoped().Model(&models.Node{}).
		Where("metatype_id = ?", metatypeID).
		Limit(probeLimit).
		Pluck("id", &ids).Error
	if err != nil {
		return false, classify(err, "probe nodes")
	}
	return len(ids) > 0, nil
}

// EdgesForPair reports whether any edge is typed by pairID.
func (p *DataProbe) EdgesForPair(ctx context.Context, tx Tx, pairID uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	err := conn(ctx, p.db, tx).Unscoped().Model(&models.Edge{}).
		Where("relationship_pair_id = ?", pairID).
		Limit(probeLimit).
		Pluck("id", &ids).Error
	if err != nil {
		return false, classify(err, "probe edges")
	}
	return len(ids) > 0, nil
}
