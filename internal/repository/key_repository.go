package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// MetatypeKeyRepository writes metatype keys independently of their owner.
// Bulk ontology imports use it to flush keys in chunks.
type MetatypeKeyRepository struct {
	tx    Transactor
	keys  MetatypeKeyStore
	cache *Cached
}

func NewMetatypeKeyRepository(tx Transactor, keys MetatypeKeyStore, c *Cached) *MetatypeKeyRepository {
	return &MetatypeKeyRepository{tx: tx, keys: keys, cache: c}
}

// BulkSave saves keys in one transaction, replacing each element in place
// with its stored row. Every key must name its metatype.
func (r *MetatypeKeyRepository) BulkSave(ctx context.Context, keys []models.MetatypeKey, user string) error {
	if len(keys) == 0 {
		return nil
	}
	owners := make([]uuid.UUID, 0, len(keys))
	for i := range keys {
		if keys[i].MetatypeID == uuid.Nil {
			return appErr.Newf(appErr.CodeInvalid, "key %s has no metatype", keys[i].Name)
		}
		if err := keys[i].Validate(); err != nil {
			return err
		}
		owners = append(owners, keys[i].MetatypeID)
	}
	owners = uniq(owners)

	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return bulkWrite(ctx, r.keys, tx, user, keys, metatypeKeyID)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(owners...)...)
	return nil
}

// DeleteMany permanently removes keys the caller has already proven unused.
func (r *MetatypeKeyRepository) DeleteMany(ctx context.Context, keys []models.MetatypeKey) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(keys))
	owners := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ID)
		owners = append(owners, k.MetatypeID)
	}
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return r.keys.BulkDelete(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(uniq(owners)...)...)
	return nil
}

// ListSelf returns the keys each metatype declares itself, grouped by owner.
func (r *MetatypeKeyRepository) ListSelf(ctx context.Context, metatypeIDs ...uuid.UUID) (map[uuid.UUID][]models.MetatypeKey, error) {
	keys, err := r.keys.ListSelfMany(ctx, nil, metatypeIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]models.MetatypeKey, len(metatypeIDs))
	for _, k := range keys {
		out[k.MetatypeID] = append(out[k.MetatypeID], k)
	}
	return out, nil
}

// RefreshView rebuilds the inheritance-resolved keys view.
func (r *MetatypeKeyRepository) RefreshView(ctx context.Context) error {
	return r.keys.RefreshView(ctx, nil)
}

// RelationshipKeyRepository writes relationship keys independently of their
// owner.
type RelationshipKeyRepository struct {
	tx    Transactor
	keys  RelationshipKeyStore
	cache *Cached
}

func NewRelationshipKeyRepository(tx Transactor, keys RelationshipKeyStore, c *Cached) *RelationshipKeyRepository {
	return &RelationshipKeyRepository{tx: tx, keys: keys, cache: c}
}

// BulkSave saves keys in one transaction, replacing each element in place
// with its stored row.
func (r *RelationshipKeyRepository) BulkSave(ctx context.Context, keys []models.MetatypeRelationshipKey, user string) error {
	if len(keys) == 0 {
		return nil
	}
	stale := make([]string, 0, len(keys))
	for i := range keys {
		if keys[i].MetatypeRelationshipID == uuid.Nil {
			return appErr.Newf(appErr.CodeInvalid, "key %s has no relationship", keys[i].Name)
		}
		if err := keys[i].Validate(); err != nil {
			return err
		}
		stale = append(stale, relationshipCacheKey(keys[i].MetatypeRelationshipID))
	}

	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return bulkWrite(ctx, r.keys, tx, user, keys, relationshipKeyID)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// DeleteMany permanently removes relationship keys.
func (r *RelationshipKeyRepository) DeleteMany(ctx context.Context, keys []models.MetatypeRelationshipKey) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(keys))
	stale := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ID)
		stale = append(stale, relationshipCacheKey(k.MetatypeRelationshipID))
	}
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return r.keys.BulkDelete(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// ListFor returns the keys of each relationship, grouped by owner.
func (r *RelationshipKeyRepository) ListFor(ctx context.Context, relationshipIDs ...uuid.UUID) (map[uuid.UUID][]models.MetatypeRelationshipKey, error) {
	keys, err := r.keys.ListForRelationships(ctx, nil, relationshipIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]models.MetatypeRelationshipKey, len(relationshipIDs))
	for _, k := range keys {
		out[k.MetatypeRelationshipID] = append(out[k.MetatypeRelationshipID], k)
	}
	return out, nil
}
