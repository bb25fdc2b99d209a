package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"gorm.io/gorm"
)

// RelationshipMapper persists metatype relationships.
type RelationshipMapper struct {
	mapper[models.MetatypeRelationship, *models.MetatypeRelationship]
}

func NewRelationshipMapper(db *gorm.DB) *RelationshipMapper {
	return &RelationshipMapper{mapper[models.MetatypeRelationship, *models.MetatypeRelationship]{
		db:        db,
		name:      "metatype relationship",
		versioned: true,
		conflict:  upsertOn([]string{"container_id", "name", "ontology_version"}, "description"),
	}}
}

// PairMapper persists relationship pairs.
type PairMapper struct {
	mapper[models.MetatypeRelationshipPair, *models.MetatypeRelationshipPair]
}

func NewPairMapper(db *gorm.DB) *PairMapper {
	return &PairMapper{mapper[models.MetatypeRelationshipPair, *models.MetatypeRelationshipPair]{
		db:        db,
		name:      "relationship pair",
		versioned: true,
		conflict: upsertOn(
			[]string{"relationship_id", "origin_metatype_id", "destination_metatype_id", "ontology_version"},
			"name", "description", "relationship_type",
		),
	}}
}

// ListForMetatype returns the pairs a metatype can originate, including the
// ones declared on its ancestors, against the live tables.
func (m *PairMapper) ListForMetatype(ctx context.Context, tx Tx, metatypeID uuid.UUID) ([]models.MetatypeRelationshipPair, error) {
	var out []models.MetatypeRelationshipPair
	err := conn(ctx, m.db, tx).Raw(`
WITH RECURSIVE lineage(id, depth) AS (
    SELECT CAST(@id AS uuid), 0
    UNION ALL
    SELECT i.parent_id, l.depth + 1 FROM metatypes_inheritance i JOIN lineage l ON i.child_id = l.id
    WHERE l.depth < @max
)
SELECT p.* FROM metatype_relationship_pairs p JOIN lineage l ON p.origin_metatype_id = l.id
WHERE p.deleted_at IS NULL
ORDER BY p.name`, map[string]any{"id": metatypeID, "max": maxLineageDepth}).Scan(&out).Error
	if err != nil {
		return nil, classify(err, "list metatype pairs")
	}
	return out, nil
}

// ListFromView reads inherited pairs from the materialized view, with the
// origin rewritten to metatypeID.
func (m *PairMapper) ListFromView(ctx context.Context, tx Tx, metatypeID uuid.UUID) ([]models.MetatypeRelationshipPair, error) {
	var out []models.MetatypeRelationshipPair
	err := conn(ctx, m.db, tx).Table("metatype_relationship_pairs_view").
		Where("origin_metatype_id = ?", metatypeID).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list metatype pairs view")
	}
	return out, nil
}

// RefreshView rebuilds metatype_relationship_pairs_view.
func (m *PairMapper) RefreshView(ctx context.Context, tx Tx) error {
	err := conn(ctx, m.db, tx).Exec("REFRESH MATERIALIZED VIEW metatype_relationship_pairs_view").Error
	return classify(err, "refresh relationship pairs view")
}

// ListForRelationship returns the live pairs built on a relationship.
func (m *PairMapper) ListForRelationship(ctx context.Context, tx Tx, relationshipID uuid.UUID) ([]models.MetatypeRelationshipPair, error) {
	var out []models.MetatypeRelationshipPair
	err := conn(ctx, m.db, tx).Where("relationship_id = ?", relationshipID).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list relationship pairs")
	}
	return out, nil
}
