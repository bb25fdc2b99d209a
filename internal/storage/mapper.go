package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// row is satisfied by the pointer type of every persisted entity.
type row[T any] interface {
	*T
	Stamp(user string, creating bool)
}

// ListOptions filters List queries. A nil OntologyVersion selects the live
// ontology (rows whose version is NULL) unless AnyVersion is set.
type ListOptions struct {
	ContainerID     uuid.UUID
	OntologyVersion *uuid.UUID
	AnyVersion      bool
	Name            string
	IncludeArchived bool
	Limit           int
	Offset          int
	SortBy          string
	SortDesc        bool
}

var sortable = map[string]bool{"name": true, "created_at": true, "updated_at": true}

// mapper implements the CRUD primitives shared by every entity table. Each
// method runs inside tx when one is given.
type mapper[T any, P row[T]] struct {
	db        *gorm.DB
	name      string
	view      string
	versioned bool
	conflict  *clause.OnConflict
}

// Create inserts r, or upserts it when the table has a natural key.
func (m *mapper[T, P]) Create(ctx context.Context, tx Tx, user string, r *T) error {
	P(r).Stamp(user, true)
	if err := m.insert(ctx, tx).Create(r).Error; err != nil {
		return classify(err, "create "+m.name)
	}
	return nil
}

// BulkCreate inserts rows in one statement. The returned slice is rows itself
// with ids filled in, in input order.
func (m *mapper[T, P]) BulkCreate(ctx context.Context, tx Tx, user string, rows []T) ([]T, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	for i := range rows {
		P(&rows[i]).Stamp(user, true)
	}
	if err := m.insert(ctx, tx).Create(&rows).Error; err != nil {
		return nil, classify(err, "bulk create "+m.name)
	}
	return rows, nil
}

func (m *mapper[T, P]) insert(ctx context.Context, tx Tx) *gorm.DB {
	q := conn(ctx, m.db, tx)
	if m.conflict != nil {
		q = q.Clauses(*m.conflict, clause.Returning{})
	}
	return q
}

// Update writes every mutable column of r and refreshes r from the stored row.
func (m *mapper[T, P]) Update(ctx context.Context, tx Tx, user string, r *T) error {
	P(r).Stamp(user, false)
	res := conn(ctx, m.db, tx).Model(r).
		Clauses(clause.Returning{}).
		Select("*").
		Omit("id", "created_at", "created_by", "deleted_at", "archived").
		Updates(r)
	if res.Error != nil {
		return classify(res.Error, "update "+m.name)
	}
	if res.RowsAffected == 0 {
		return notFound("update "+m.name, "row")
	}
	return nil
}

// BulkUpdate updates rows one statement at a time on the same transaction.
func (m *mapper[T, P]) BulkUpdate(ctx context.Context, tx Tx, user string, rows []T) ([]T, error) {
	for i := range rows {
		if err := m.Update(ctx, tx, user, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Retrieve reads one live row, through the read view when the entity has one.
func (m *mapper[T, P]) Retrieve(ctx context.Context, tx Tx, id uuid.UUID) (T, error) {
	var out T
	q := conn(ctx, m.db, tx)
	if m.view != "" {
		q = q.Table(m.view)
	}
	if err := q.Where("id = ?", id).Take(&out).Error; err != nil {
		return out, classify(err, "retrieve "+m.name)
	}
	return out, nil
}

// Delete removes a row permanently.
func (m *mapper[T, P]) Delete(ctx context.Context, tx Tx, id uuid.UUID) error {
	res := conn(ctx, m.db, tx).Unscoped().Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return classify(res.Error, "delete "+m.name)
	}
	if res.RowsAffected == 0 {
		return notFound("delete "+m.name, id)
	}
	return nil
}

// BulkDelete removes rows permanently. Missing ids are ignored.
func (m *mapper[T, P]) BulkDelete(ctx context.Context, tx Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := conn(ctx, m.db, tx).Unscoped().Where("id IN ?", ids).Delete(new(T)).Error; err != nil {
		return classify(err, "bulk delete "+m.name)
	}
	return nil
}

// Archive soft-deletes a live row.
func (m *mapper[T, P]) Archive(ctx context.Context, tx Tx, user string, id uuid.UUID) error {
	res := conn(ctx, m.db, tx).Model(new(T)).Where("id = ?", id).Updates(map[string]any{
		"archived":    true,
		"deleted_at":  time.Now(),
		"modified_by": user,
	})
	if res.Error != nil {
		return classify(res.Error, "archive "+m.name)
	}
	if res.RowsAffected == 0 {
		return notFound("archive "+m.name, id)
	}
	return nil
}

// Unarchive restores an archived row.
func (m *mapper[T, P]) Unarchive(ctx context.Context, tx Tx, user string, id uuid.UUID) error {
	res := conn(ctx, m.db, tx).Unscoped().Model(new(T)).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{
			"archived":    false,
			"deleted_at":  gorm.Expr("NULL"),
			"modified_by": user,
		})
	if res.Error != nil {
		return classify(res.Error, "unarchive "+m.name)
	}
	if res.RowsAffected == 0 {
		return notFound("unarchive "+m.name, id)
	}
	return nil
}

// List returns rows matching opts.
func (m *mapper[T, P]) List(ctx context.Context, tx Tx, opts ListOptions) ([]T, error) {
	q := conn(ctx, m.db, tx)
	if m.view != "" {
		q = q.Table(m.view)
	}
	if opts.IncludeArchived {
		q = q.Unscoped()
	}
	if opts.ContainerID != uuid.Nil {
		q = q.Where("container_id = ?", opts.ContainerID)
	}
	if m.versioned && !opts.AnyVersion {
		if opts.OntologyVersion == nil {
			q = q.Where("ontology_version IS NULL")
		} else {
			q = q.Where("ontology_version = ?", *opts.OntologyVersion)
		}
	}
	if opts.Name != "" {
		q = q.Where("name = ?", opts.Name)
	}
	sortBy := "name"
	if sortable[opts.SortBy] {
		sortBy = opts.SortBy
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: opts.SortDesc})
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, classify(err, "list "+m.name)
	}
	return out, nil
}

func columns(names ...string) []clause.Column {
	out := make([]clause.Column, 0, len(names))
	for _, n := range names {
		out = append(out, clause.Column{Name: n})
	}
	return out
}

// upsertOn builds the ON CONFLICT clause for a natural key. A conflicting
// archived row is revived with the incoming values.
func upsertOn(key []string, update ...string) *clause.OnConflict {
	set := clause.AssignmentColumns(append(update, "modified_by", "updated_at"))
	set = append(set,
		clause.Assignment{Column: clause.Column{Name: "archived"}, Value: false},
		clause.Assignment{Column: clause.Column{Name: "deleted_at"}, Value: gorm.Expr("NULL")},
	)
	return &clause.OnConflict{Columns: columns(key...), DoUpdates: set}
}

// setArchivedWhere archives or restores every row whose column equals value.
func (m *mapper[T, P]) setArchivedWhere(ctx context.Context, tx Tx, user, column string, value uuid.UUID, archived bool) error {
	q := conn(ctx, m.db, tx).Model(new(T))
	set := map[string]any{"archived": archived, "modified_by": user}
	if archived {
		set["deleted_at"] = time.Now()
	} else {
		q = q.Unscoped().Where("deleted_at IS NOT NULL")
		set["deleted_at"] = gorm.Expr("NULL")
	}
	err := q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).Updates(set).Error
	return classify(err, "archive "+m.name+"s")
}
