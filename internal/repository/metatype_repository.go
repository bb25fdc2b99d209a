package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// MetatypeRepository saves metatypes together with their own keys and
// inheritance link.
type MetatypeRepository struct {
	tx        Transactor
	metatypes MetatypeStore
	keys      MetatypeKeyStore
	pairs     PairStore
	probe     Prober
	cache     *Cached
}

func NewMetatypeRepository(tx Transactor, metatypes MetatypeStore, keys MetatypeKeyStore, pairs PairStore, probe Prober, c *Cached) *MetatypeRepository {
	return &MetatypeRepository{tx: tx, metatypes: metatypes, keys: keys, pairs: pairs, probe: probe, cache: c}
}

// Save creates m, or updates it when m.ID is set. An update is a partial
// merge: empty fields keep their stored values. Staged key removals and the
// parent link are written in the same transaction.
func (r *MetatypeRepository) Save(ctx context.Context, m *models.Metatype, user string) error {
	if m.ID == uuid.Nil {
		if err := validateMetatype(m); err != nil {
			return err
		}
	}

	var touched []uuid.UUID
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		var err error
		touched, err = r.save(ctx, tx, m, user)
		return err
	})
	if err != nil {
		return err
	}

	m.ResetStaging()
	r.cache.PurgeAsync(ctx, metatypeFamily(touched...)...)
	return nil
}

func (r *MetatypeRepository) save(ctx context.Context, tx storage.Tx, m *models.Metatype, user string) ([]uuid.UUID, error) {
	if m.ID != uuid.Nil {
		current, err := r.metatypes.Retrieve(ctx, tx, m.ID)
		if err != nil {
			return nil, err
		}
		mergeMetatype(m, current)
		if err := validateMetatype(m); err != nil {
			return nil, err
		}
		r.cache.Purge(ctx, metatypeFamily(m.ID)...)
		if err := r.metatypes.Update(ctx, tx, user, m); err != nil {
			return nil, err
		}
	} else if err := r.metatypes.Create(ctx, tx, user, m); err != nil {
		return nil, err
	}

	if err := r.saveParent(ctx, tx, m, nil); err != nil {
		return nil, err
	}
	if err := r.saveKeys(ctx, tx, m, user); err != nil {
		return nil, err
	}

	descendants, err := r.metatypes.ListDescendants(ctx, tx, m.ID)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID{m.ID}, descendants...), nil
}

// BulkSave saves every metatype in one transaction. Metatypes with an id are
// updated and the rest created; each element of ms is replaced in place by
// its stored row so new metatypes gain their ids. A single invalid metatype
// aborts the batch before anything is written.
func (r *MetatypeRepository) BulkSave(ctx context.Context, ms []models.Metatype, user string) error {
	if len(ms) == 0 {
		return nil
	}
	for i := range ms {
		if ms[i].ID == uuid.Nil {
			if err := validateMetatype(&ms[i]); err != nil {
				return err
			}
		}
	}

	var touched []uuid.UUID
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		var updated []uuid.UUID
		for i := range ms {
			if ms[i].ID == uuid.Nil {
				continue
			}
			current, err := r.metatypes.Retrieve(ctx, tx, ms[i].ID)
			if err != nil {
				return err
			}
			mergeMetatype(&ms[i], current)
			if err := validateMetatype(&ms[i]); err != nil {
				return err
			}
			updated = append(updated, ms[i].ID)
		}
		r.cache.Purge(ctx, metatypeFamily(updated...)...)

		if err := bulkWrite(ctx, r.metatypes, tx, user, ms, metatypeID); err != nil {
			return err
		}

		trees := map[uuid.UUID]*models.InheritanceTree{}
		for i := range ms {
			if err := r.saveParent(ctx, tx, &ms[i], trees); err != nil {
				return err
			}
			if err := r.saveKeys(ctx, tx, &ms[i], user); err != nil {
				return err
			}
			touched = append(touched, ms[i].ID)
		}
		for _, id := range updated {
			for _, t := range trees {
				touched = append(touched, t.Descendants(id)...)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range ms {
		ms[i].ResetStaging()
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(uniq(touched)...)...)
	return nil
}

// SetParents writes child -> parent inheritance links in one transaction. A
// uuid.Nil parent removes the child's link.
func (r *MetatypeRepository) SetParents(ctx context.Context, containerID uuid.UUID, links map[uuid.UUID]uuid.UUID) error {
	if len(links) == 0 {
		return nil
	}
	var touched []uuid.UUID
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		existing, err := r.metatypes.ListInheritance(ctx, tx, containerID)
		if err != nil {
			return err
		}
		tree := models.NewInheritanceTree(existing)
		rows := make([]storage.InheritanceLink, 0, len(links))
		for child, parent := range links {
			p, linked := tree.Parent(child)
			if parent == uuid.Nil {
				if !linked {
					continue
				}
				if err := r.metatypes.DeleteInheritance(ctx, tx, child); err != nil {
					return err
				}
				tree.Remove(child)
				touched = append(touched, child)
				continue
			}
			if linked && p == parent {
				continue
			}
			if tree.WouldCycle(child, parent) {
				return cycleError(child, parent)
			}
			tree.Set(child, parent)
			rows = append(rows, storage.InheritanceLink{ParentID: parent, ChildID: child})
			touched = append(touched, child)
		}
		if len(rows) > 0 {
			if err := r.metatypes.BulkUpsertInheritance(ctx, tx, rows); err != nil {
				return err
			}
		}
		for _, child := range touched {
			touched = append(touched, tree.Descendants(child)...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(uniq(touched)...)...)
	return nil
}

// saveParent keeps the inheritance table in line with m.ParentID. trees
// caches the inheritance of each container across a bulk save.
func (r *MetatypeRepository) saveParent(ctx context.Context, tx storage.Tx, m *models.Metatype, trees map[uuid.UUID]*models.InheritanceTree) error {
	if m.ParentID == nil {
		if m.ParentDetached() {
			if t := trees[m.ContainerID]; t != nil {
				t.Remove(m.ID)
			}
			return r.metatypes.DeleteInheritance(ctx, tx, m.ID)
		}
		return nil
	}

	tree := trees[m.ContainerID]
	if tree == nil {
		links, err := r.metatypes.ListInheritance(ctx, tx, m.ContainerID)
		if err != nil {
			return err
		}
		tree = models.NewInheritanceTree(links)
		if trees != nil {
			trees[m.ContainerID] = tree
		}
	}
	parent := *m.ParentID
	if p, ok := tree.Parent(m.ID); ok && p == parent {
		return nil
	}
	if tree.WouldCycle(m.ID, parent) {
		return cycleError(m.ID, parent)
	}
	tree.Set(m.ID, parent)
	return r.metatypes.UpsertInheritance(ctx, tx, m.ID, parent)
}

// saveKeys deletes staged keys and writes the keys m declares itself.
// Inherited keys loaded alongside m are left alone.
func (r *MetatypeRepository) saveKeys(ctx context.Context, tx storage.Tx, m *models.Metatype, user string) error {
	if removed := m.RemovedKeys(); len(removed) > 0 {
		if err := r.keys.BulkDelete(ctx, tx, removed); err != nil {
			return err
		}
	}

	var own []int
	for i := range m.Keys {
		k := &m.Keys[i]
		if k.MetatypeID != uuid.Nil && k.MetatypeID != m.ID {
			continue
		}
		k.MetatypeID = m.ID
		k.ContainerID = m.ContainerID
		own = append(own, i)
	}
	if len(own) == 0 {
		return nil
	}
	keys := pick(m.Keys, own)
	if err := bulkWrite(ctx, r.keys, tx, user, keys, metatypeKeyID); err != nil {
		return err
	}
	place(m.Keys, own, keys)
	return nil
}

// FindByID reads a metatype. Full live loads are served from and written to
// the cache; view loads always go to storage.
func (r *MetatypeRepository) FindByID(ctx context.Context, id uuid.UUID, load Load) (models.Metatype, error) {
	if load.cacheable() {
		if m, ok := lookup[models.Metatype](ctx, r.cache, metatypeCacheKey(id)); ok {
			return m, nil
		}
	}

	m, err := r.metatypes.Retrieve(ctx, nil, id)
	if err != nil {
		return m, err
	}
	if !load.Nested {
		return m, nil
	}

	if load.FromView {
		if m.Keys, err = r.keys.ListFromView(ctx, nil, id); err != nil {
			return m, err
		}
		if m.Relationships, err = r.pairs.ListFromView(ctx, nil, id); err != nil {
			return m, err
		}
		return m, nil
	}

	if m.Keys, err = r.keys.ListForMetatype(ctx, nil, id); err != nil {
		return m, err
	}
	if m.Relationships, err = r.pairs.ListForMetatype(ctx, nil, id); err != nil {
		return m, err
	}
	r.cache.store(ctx, metatypeCacheKey(id), m)
	return m, nil
}

// ResolvedKeys returns a metatype's own and inherited keys.
func (r *MetatypeRepository) ResolvedKeys(ctx context.Context, id uuid.UUID) ([]models.MetatypeKey, error) {
	if keys, ok := lookup[[]models.MetatypeKey](ctx, r.cache, metatypeKeysCacheKey(id)); ok {
		return keys, nil
	}
	if _, err := r.metatypes.Retrieve(ctx, nil, id); err != nil {
		return nil, err
	}
	keys, err := r.keys.ListForMetatype(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	r.cache.store(ctx, metatypeKeysCacheKey(id), keys)
	return keys, nil
}

// ResolvedPairs returns the pairs a metatype can originate, inherited ones
// included.
func (r *MetatypeRepository) ResolvedPairs(ctx context.Context, id uuid.UUID) ([]models.MetatypeRelationshipPair, error) {
	if pairs, ok := lookup[[]models.MetatypeRelationshipPair](ctx, r.cache, metatypePairsCacheKey(id)); ok {
		return pairs, nil
	}
	if _, err := r.metatypes.Retrieve(ctx, nil, id); err != nil {
		return nil, err
	}
	pairs, err := r.pairs.ListForMetatype(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	r.cache.store(ctx, metatypePairsCacheKey(id), pairs)
	return pairs, nil
}

// ValidateProperties checks a node payload against a metatype's resolved
// keys and returns it with defaults applied.
func (r *MetatypeRepository) ValidateProperties(ctx context.Context, id uuid.UUID, payload map[string]any) (map[string]any, error) {
	keys, err := r.ResolvedKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	m := models.Metatype{ID: id, Keys: keys}
	return m.ValidateAndTransformProperties(payload)
}

func (r *MetatypeRepository) List(ctx context.Context, opts storage.ListOptions) ([]models.Metatype, error) {
	return r.metatypes.List(ctx, nil, opts)
}

// Ancestors returns the ancestors of id, nearest first.
func (r *MetatypeRepository) Ancestors(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return r.metatypes.ListAncestors(ctx, nil, id)
}

// Delete permanently removes a metatype. It refuses while any node is typed
// by it.
func (r *MetatypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var touched []uuid.UUID
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		m, err := r.metatypes.Retrieve(ctx, tx, id)
		if err != nil {
			return err
		}
		has, err := r.probe.NodesForMetatype(ctx, tx, id)
		if err != nil {
			return err
		}
		if has {
			return hasDataConflict("metatype", m.Name)
		}
		descendants, err := r.metatypes.ListDescendants(ctx, tx, id)
		if err != nil {
			return err
		}
		touched = append(descendants, id)
		return r.metatypes.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(touched...)...)
	return nil
}

// DeleteMany permanently removes metatypes the caller has already proven
// unreferenced.
func (r *MetatypeRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return r.metatypes.BulkDelete(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(ids...)...)
	return nil
}

// Archive soft-deletes a metatype and the keys it declares.
func (r *MetatypeRepository) Archive(ctx context.Context, id uuid.UUID, user string) error {
	return r.setArchived(ctx, id, user, true)
}

// Unarchive restores a metatype and its keys.
func (r *MetatypeRepository) Unarchive(ctx context.Context, id uuid.UUID, user string) error {
	return r.setArchived(ctx, id, user, false)
}

func (r *MetatypeRepository) setArchived(ctx context.Context, id uuid.UUID, user string, archived bool) error {
	var touched []uuid.UUID
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		if archived {
			if err := r.metatypes.Archive(ctx, tx, user, id); err != nil {
				return err
			}
			if err := r.keys.ArchiveForMetatype(ctx, tx, user, id); err != nil {
				return err
			}
		} else {
			if err := r.metatypes.Unarchive(ctx, tx, user, id); err != nil {
				return err
			}
			if err := r.keys.UnarchiveForMetatype(ctx, tx, user, id); err != nil {
				return err
			}
		}
		descendants, err := r.metatypes.ListDescendants(ctx, tx, id)
		if err != nil {
			return err
		}
		touched = append(descendants, id)
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, metatypeFamily(touched...)...)
	return nil
}

func validateMetatype(m *models.Metatype) error {
	if err := m.Validate(); err != nil {
		return err
	}
	for i := range m.Keys {
		if err := m.Keys[i].Validate(); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "key "+m.Keys[i].Name+" of metatype "+m.Name+" is invalid")
		}
	}
	return nil
}

// mergeMetatype fills the fields the caller left empty from the stored row.
func mergeMetatype(m *models.Metatype, current models.Metatype) {
	if m.ContainerID == uuid.Nil {
		m.ContainerID = current.ContainerID
	}
	if m.OntologyVersion == nil {
		m.OntologyVersion = current.OntologyVersion
	}
	if m.Name == "" {
		m.Name = current.Name
	}
	if m.Description == "" {
		m.Description = current.Description
	}
	if m.ParentID == nil && !m.ParentDetached() {
		m.ParentID = current.ParentID
	}
	m.Archived = current.Archived
	m.CreatedBy = current.CreatedBy
	m.CreatedAt = current.CreatedAt
}

func cycleError(child, parent uuid.UUID) error {
	return appErr.Newf(appErr.CodeInvalid, "metatype %s cannot inherit from %s: inheritance would form a cycle", child, parent)
}

func metatypeID(m *models.Metatype) uuid.UUID       { return m.ID }
func metatypeKeyID(k *models.MetatypeKey) uuid.UUID { return k.ID }
