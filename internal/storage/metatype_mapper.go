package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxLineageDepth bounds recursive inheritance walks.
const maxLineageDepth = 64

// InheritanceLink is one row of metatypes_inheritance.
type InheritanceLink struct {
	ParentID uuid.UUID `gorm:"type:uuid;not null"`
	ChildID  uuid.UUID `gorm:"type:uuid;not null"`
}

func (InheritanceLink) TableName() string { return "metatypes_inheritance" }

// MetatypeMapper persists metatypes and their inheritance links. Reads go
// through metatypes_view so ParentID is populated.
type MetatypeMapper struct {
	mapper[models.Metatype, *models.Metatype]
}

func NewMetatypeMapper(db *gorm.DB) *MetatypeMapper {
	return &MetatypeMapper{mapper[models.Metatype, *models.Metatype]{
		db:        db,
		name:      "metatype",
		view:      "metatypes_view",
		versioned: true,
		conflict:  upsertOn([]string{"container_id", "name", "ontology_version"}, "description"),
	}}
}

// UpsertInheritance makes parent the sole parent of child.
func (m *MetatypeMapper) UpsertInheritance(ctx context.Context, tx Tx, child, parent uuid.UUID) error {
	return m.BulkUpsertInheritance(ctx, tx, []InheritanceLink{{ParentID: parent, ChildID: child}})
}

// BulkUpsertInheritance writes links, replacing any existing parent of each child.
func (m *MetatypeMapper) BulkUpsertInheritance(ctx context.Context, tx Tx, links []InheritanceLink) error {
	if len(links) == 0 {
		return nil
	}
	err := conn(ctx, m.db, tx).Clauses(clause.OnConflict{
		Columns:   columns("child_id"),
		DoUpdates: clause.AssignmentColumns([]string{"parent_id"}),
	}).Create(&links).Error
	return classify(err, "upsert metatype inheritance")
}

// DeleteInheritance detaches child from its parent, if any.
func (m *MetatypeMapper) DeleteInheritance(ctx context.Context, tx Tx, child uuid.UUID) error {
	err := conn(ctx, m.db, tx).Where("child_id = ?", child).Delete(&InheritanceLink{}).Error
	return classify(err, "delete metatype inheritance")
}

// ListInheritance returns child -> parent for every link in a container.
func (m *MetatypeMapper) ListInheritance(ctx context.Context, tx Tx, containerID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	var links []InheritanceLink
	err := conn(ctx, m.db, tx).
		Table("metatypes_inheritance i").
		Select("i.parent_id, i.child_id").
		Joins("JOIN metatypes m ON m.id = i.child_id").
		Where("m.container_id = ?", containerID).
		Scan(&links).Error
	if err != nil {
		return nil, classify(err, "list metatype inheritance")
	}
	out := make(map[uuid.UUID]uuid.UUID, len(links))
	for _, l := range links {
		out[l.ChildID] = l.ParentID
	}
	return out, nil
}

// ListAncestors returns the ancestors of id, nearest first.
func (m *MetatypeMapper) ListAncestors(ctx context.Context, tx Tx, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(ctx, m.db, tx).Raw(`
WITH RECURSIVE up(id, depth) AS (
    SELECT parent_id, 1 FROM metatypes_inheritance WHERE child_id = @id
    UNION ALL
    SELECT i.parent_id, u.depth + 1 FROM metatypes_inheritance i JOIN up u ON i.child_id = u.id
    WHERE u.depth < @max
)
SELECT id FROM up ORDER BY depth`, map[string]any{"id": id, "max": maxLineageDepth}).Scan(&ids).Error
	if err != nil {
		return nil, classify(err, "list metatype ancestors")
	}
	return ids, nil
}

// ListDescendants returns every metatype inheriting from id, directly or not.
func (m *MetatypeMapper) ListDescendants(ctx context.Context, tx Tx, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(ctx, m.db, tx).Raw(`
WITH RECURSIVE down(id, depth) AS (
    SELECT child_id, 1 FROM metatypes_inheritance WHERE parent_id = @id
    UNION ALL
    SELECT i.child_id, d.depth + 1 FROM metatypes_inheritance i JOIN down d ON i.parent_id = d.id
    WHERE d.depth < @max
)
SELECT id FROM down ORDER BY depth`, map[string]any{"id": id, "max": maxLineageDepth}).Scan(&ids).Error
	if err != nil {
		return nil, classify(err, "list metatype descendants")
	}
	return ids, nil
}
