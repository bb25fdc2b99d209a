package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
)

// PairRepository saves relationship pairs. A pair write also invalidates
// the cached pair lists of its origin metatype and that metatype's
// descendants, which inherit the pair.
type PairRepository struct {
	tx      Transactor
	pairs   PairStore
	lineage Lineage
	probe   Prober
	cache   *Cached
}

func NewPairRepository(tx Transactor, pairs PairStore, lineage Lineage, probe Prober, c *Cached) *PairRepository {
	return &PairRepository{tx: tx, pairs: pairs, lineage: lineage, probe: probe, cache: c}
}

// Save creates p, or merges it onto the stored row when p.ID is set.
func (r *PairRepository) Save(ctx context.Context, p *models.MetatypeRelationshipPair, user string) error {
	if p.ID == uuid.Nil {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	var stale []string
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		if p.ID != uuid.Nil {
			current, err := r.pairs.Retrieve(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			mergePair(p, current)
			if err := p.Validate(); err != nil {
				return err
			}
			r.cache.Purge(ctx, pairCacheKey(p.ID), metatypeCacheKey(current.OriginMetatypeID), metatypePairsCacheKey(current.OriginMetatypeID))
			if err := r.pairs.Update(ctx, tx, user, p); err != nil {
				return err
			}
			if current.OriginMetatypeID != p.OriginMetatypeID {
				more, err := r.originFamily(ctx, tx, current.OriginMetatypeID)
				if err != nil {
					return err
				}
				stale = append(stale, more...)
			}
		} else if err := r.pairs.Create(ctx, tx, user, p); err != nil {
			return err
		}
		more, err := r.originFamily(ctx, tx, p.OriginMetatypeID)
		if err != nil {
			return err
		}
		stale = append(stale, pairCacheKey(p.ID))
		stale = append(stale, more...)
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// BulkSave saves every pair in one transaction, replacing each element of
// ps in place with its stored row.
func (r *PairRepository) BulkSave(ctx context.Context, ps []models.MetatypeRelationshipPair, user string) error {
	if len(ps) == 0 {
		return nil
	}
	for i := range ps {
		if ps[i].ID == uuid.Nil {
			if err := ps[i].Validate(); err != nil {
				return err
			}
		}
	}

	var stale []string
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		var before []string
		for i := range ps {
			if ps[i].ID == uuid.Nil {
				continue
			}
			current, err := r.pairs.Retrieve(ctx, tx, ps[i].ID)
			if err != nil {
				return err
			}
			mergePair(&ps[i], current)
			if err := ps[i].Validate(); err != nil {
				return err
			}
			before = append(before, pairCacheKey(ps[i].ID))
		}
		r.cache.Purge(ctx, before...)

		if err := bulkWrite(ctx, r.pairs, tx, user, ps, pairID); err != nil {
			return err
		}
		origins := make([]uuid.UUID, 0, len(ps))
		for i := range ps {
			stale = append(stale, pairCacheKey(ps[i].ID))
			origins = append(origins, ps[i].OriginMetatypeID)
		}
		for _, origin := range uniq(origins) {
			more, err := r.originFamily(ctx, tx, origin)
			if err != nil {
				return err
			}
			stale = append(stale, more...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// originFamily lists the metatype cache entries that show pairs of origin.
func (r *PairRepository) originFamily(ctx context.Context, tx storage.Tx, origin uuid.UUID) ([]string, error) {
	descendants, err := r.lineage.ListDescendants(ctx, tx, origin)
	if err != nil {
		return nil, err
	}
	return metatypeFamily(append(descendants, origin)...), nil
}

func (r *PairRepository) FindByID(ctx context.Context, id uuid.UUID) (models.MetatypeRelationshipPair, error) {
	if p, ok := lookup[models.MetatypeRelationshipPair](ctx, r.cache, pairCacheKey(id)); ok {
		return p, nil
	}
	p, err := r.pairs.Retrieve(ctx, nil, id)
	if err != nil {
		return p, err
	}
	r.cache.store(ctx, pairCacheKey(id), p)
	return p, nil
}

// RefreshView rebuilds the inheritance-resolved pairs view.
func (r *PairRepository) RefreshView(ctx context.Context) error {
	return r.pairs.RefreshView(ctx, nil)
}

func (r *PairRepository) List(ctx context.Context, opts storage.ListOptions) ([]models.MetatypeRelationshipPair, error) {
	return r.pairs.List(ctx, nil, opts)
}

// Delete permanently removes a pair. It refuses while any edge is typed by it.
func (r *PairRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var stale []string
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		p, err := r.pairs.Retrieve(ctx, tx, id)
		if err != nil {
			return err
		}
		has, err := r.probe.EdgesForPair(ctx, tx, id)
		if err != nil {
			return err
		}
		if has {
			return hasDataConflict("relationship pair", p.Name)
		}
		if stale, err = r.originFamily(ctx, tx, p.OriginMetatypeID); err != nil {
			return err
		}
		stale = append(stale, pairCacheKey(id))
		return r.pairs.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// DeleteMany permanently removes pairs the caller has already proven
// unreferenced.
func (r *PairRepository) DeleteMany(ctx context.Context, pairs []models.MetatypeRelationshipPair) error {
	if len(pairs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(pairs))
	origins := make([]uuid.UUID, 0, len(pairs))
	stale := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.ID)
		origins = append(origins, p.OriginMetatypeID)
		stale = append(stale, pairCacheKey(p.ID))
	}
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return r.pairs.BulkDelete(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, append(stale, metatypeFamily(uniq(origins)...)...)...)
	return nil
}

// Archive soft-deletes a pair.
func (r *PairRepository) Archive(ctx context.Context, id uuid.UUID, user string) error {
	return r.setArchived(ctx, id, user, true)
}

// Unarchive restores an archived pair.
func (r *PairRepository) Unarchive(ctx context.Context, id uuid.UUID, user string) error {
	return r.setArchived(ctx, id, user, false)
}

func (r *PairRepository) setArchived(ctx context.Context, id uuid.UUID, user string, archived bool) error {
	var stale []string
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		var p models.MetatypeRelationshipPair
		var err error
		if archived {
			if p, err = r.pairs.Retrieve(ctx, tx, id); err != nil {
				return err
			}
			err = r.pairs.Archive(ctx, tx, user, id)
		} else if err = r.pairs.Unarchive(ctx, tx, user, id); err == nil {
			p, err = r.pairs.Retrieve(ctx, tx, id)
		}
		if err != nil {
			return err
		}
		if stale, err = r.originFamily(ctx, tx, p.OriginMetatypeID); err != nil {
			return err
		}
		stale = append(stale, pairCacheKey(id))
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

func mergePair(p *models.MetatypeRelationshipPair, current models.MetatypeRelationshipPair) {
	if p.ContainerID == uuid.Nil {
		p.ContainerID = current.ContainerID
	}
	if p.OntologyVersion == nil {
		p.OntologyVersion = current.OntologyVersion
	}
	if p.Name == "" {
		p.Name = current.Name
	}
	if p.Description == "" {
		p.Description = current.Description
	}
	if p.OriginMetatypeID == uuid.Nil {
		p.OriginMetatypeID = current.OriginMetatypeID
	}
	if p.DestinationMetatypeID == uuid.Nil {
		p.DestinationMetatypeID = current.DestinationMetatypeID
	}
	if p.RelationshipID == uuid.Nil {
		p.RelationshipID = current.RelationshipID
	}
	if p.RelationshipType == "" {
		p.RelationshipType = current.RelationshipType
	}
	p.Archived = current.Archived
	p.CreatedBy = current.CreatedBy
	p.CreatedAt = current.CreatedAt
}

func pairID(p *models.MetatypeRelationshipPair) uuid.UUID { return p.ID }
