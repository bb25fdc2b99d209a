package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"gorm.io/gorm"
)

var keyColumns = []string{
	"name", "description", "data_type", "required", "options", "default_value", "validation",
}

// MetatypeKeyMapper persists metatype keys.
type MetatypeKeyMapper struct {
	mapper[models.MetatypeKey, *models.MetatypeKey]
}

func NewMetatypeKeyMapper(db *gorm.DB) *MetatypeKeyMapper {
	return &MetatypeKeyMapper{mapper[models.MetatypeKey, *models.MetatypeKey]{
		db:       db,
		name:     "metatype key",
		conflict: upsertOn([]string{"metatype_id", "property_name"}, keyColumns...),
	}}
}

// ListSelf returns only the keys a metatype declares itself.
func (m *MetatypeKeyMapper) ListSelf(ctx context.Context, tx Tx, metatypeID uuid.UUID) ([]models.MetatypeKey, error) {
	var out []models.MetatypeKey
	err := conn(ctx, m.db, tx).Where("metatype_id = ?", metatypeID).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list metatype keys")
	}
	return out, nil
}

// ListSelfMany returns the own keys of several metatypes at once.
func (m *MetatypeKeyMapper) ListSelfMany(ctx context.Context, tx Tx, metatypeIDs []uuid.UUID) ([]models.MetatypeKey, error) {
	if len(metatypeIDs) == 0 {
		return nil, nil
	}
	var out []models.MetatypeKey
	err := conn(ctx, m.db, tx).Where("metatype_id IN ?", metatypeIDs).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list metatype keys")
	}
	return out, nil
}

// ArchiveForMetatype archives every key a metatype declares.
func (m *MetatypeKeyMapper) ArchiveForMetatype(ctx context.Context, tx Tx, user string, metatypeID uuid.UUID) error {
	return m.setArchivedWhere(ctx, tx, user, "metatype_id", metatypeID, true)
}

// UnarchiveForMetatype restores the archived keys of a metatype.
func (m *MetatypeKeyMapper) UnarchiveForMetatype(ctx context.Context, tx Tx, user string, metatypeID uuid.UUID) error {
	return m.setArchivedWhere(ctx, tx, user, "metatype_id", metatypeID, false)
}

// ListForMetatype resolves a metatype's keys through its ancestors against
// the live tables. A key declared closer to the metatype wins on property name.
func (m *MetatypeKeyMapper) ListForMetatype(ctx context.Context, tx Tx, metatypeID uuid.UUID) ([]models.MetatypeKey, error) {
	var out []models.MetatypeKey
	err := conn(ctx, m.db, tx).Raw(`
WITH RECURSIVE lineage(id, depth) AS (
    SELECT CAST(@id AS uuid), 0
    UNION ALL
    SELECT i.parent_id, l.depth + 1 FROM metatypes_inheritance i JOIN lineage l ON i.child_id = l.id
    WHERE l.depth < @max
)
SELECT * FROM (
    SELECT DISTINCT ON (k.property_name) k.*
    FROM metatype_keys k JOIN lineage l ON k.metatype_id = l.id
    WHERE k.deleted_at IS NULL
    ORDER BY k.property_name, l.depth
) resolved ORDER BY name`, map[string]any{"id": metatypeID, "max": maxLineageDepth}).Scan(&out).Error
	if err != nil {
		return nil, classify(err, "list inherited metatype keys")
	}
	return out, nil
}

// ListFromView reads resolved keys from the materialized view. The view is
// only as fresh as the last RefreshView.
func (m *MetatypeKeyMapper) ListFromView(ctx context.Context, tx Tx, metatypeID uuid.UUID) ([]models.MetatypeKey, error) {
	var out []models.MetatypeKey
	err := conn(ctx, m.db, tx).Table("metatype_keys_view").
		Where("metatype_id = ?", metatypeID).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list metatype keys view")
	}
	return out, nil
}

// RefreshView rebuilds metatype_keys_view.
func (m *MetatypeKeyMapper) RefreshView(ctx context.Context, tx Tx) error {
	err := conn(ctx, m.db, tx).Exec("REFRESH MATERIALIZED VIEW metatype_keys_view").Error
	return classify(err, "refresh metatype keys view")
}

// RelationshipKeyMapper persists relationship keys.
type RelationshipKeyMapper struct {
	mapper[models.MetatypeRelationshipKey, *models.MetatypeRelationshipKey]
}

func NewRelationshipKeyMapper(db *gorm.DB) *RelationshipKeyMapper {
	return &RelationshipKeyMapper{mapper[models.MetatypeRelationshipKey, *models.MetatypeRelationshipKey]{
		db:       db,
		name:     "relationship key",
		conflict: upsertOn([]string{"metatype_relationship_id", "property_name"}, keyColumns...),
	}}
}

// ListForRelationship returns the keys of a relationship.
func (m *RelationshipKeyMapper) ListForRelationship(ctx context.Context, tx Tx, relationshipID uuid.UUID) ([]models.MetatypeRelationshipKey, error) {
	var out []models.MetatypeRelationshipKey
	err := conn(ctx, m.db, tx).Where("metatype_relationship_id = ?", relationshipID).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list relationship keys")
	}
	return out, nil
}

// ListForRelationships returns the keys of several relationships at once.
func (m *RelationshipKeyMapper) ListForRelationships(ctx context.Context, tx Tx, relationshipIDs []uuid.UUID) ([]models.MetatypeRelationshipKey, error) {
	if len(relationshipIDs) == 0 {
		return nil, nil
	}
	var out []models.MetatypeRelationshipKey
	err := conn(ctx, m.db, tx).Where("metatype_relationship_id IN ?", relationshipIDs).Order("name").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list relationship keys")
	}
	return out, nil
}

// ArchiveForRelationship archives every key of a relationship.
func (m *RelationshipKeyMapper) ArchiveForRelationship(ctx context.Context, tx Tx, user string, relationshipID uuid.UUID) error {
	return m.setArchivedWhere(ctx, tx, user, "metatype_relationship_id", relationshipID, true)
}

// UnarchiveForRelationship restores the archived keys of a relationship.
func (m *RelationshipKeyMapper) UnarchiveForRelationship(ctx context.Context, tx Tx, user string, relationshipID uuid.UUID) error {
	return m.setArchivedWhere(ctx, tx, user, "metatype_relationship_id", relationshipID, false)
}
