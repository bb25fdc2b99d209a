package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// RelationshipRepository saves metatype relationships and their keys.
type RelationshipRepository struct {
	tx            Transactor
	relationships RelationshipStore
	keys          RelationshipKeyStore
	pairs         PairStore
	probe         Prober
	cache         *Cached
}

func NewRelationshipRepository(tx Transactor, relationships RelationshipStore, keys RelationshipKeyStore, pairs PairStore, probe Prober, c *Cached) *RelationshipRepository {
	return &RelationshipRepository{tx: tx, relationships: relationships, keys: keys, pairs: pairs, probe: probe, cache: c}
}

// Save creates rel, or merges it onto the stored row when rel.ID is set.
func (r *RelationshipRepository) Save(ctx context.Context, rel *models.MetatypeRelationship, user string) error {
	if rel.ID == uuid.Nil {
		if err := validateRelationship(rel); err != nil {
			return err
		}
	}

	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		if rel.ID != uuid.Nil {
			current, err := r.relationships.Retrieve(ctx, tx, rel.ID)
			if err != nil {
				return err
			}
			mergeRelationship(rel, current)
			if err := validateRelationship(rel); err != nil {
				return err
			}
			r.cache.Purge(ctx, relationshipCacheKey(rel.ID))
			if err := r.relationships.Update(ctx, tx, user, rel); err != nil {
				return err
			}
		} else if err := r.relationships.Create(ctx, tx, user, rel); err != nil {
			return err
		}
		return r.saveKeys(ctx, tx, rel, user)
	})
	if err != nil {
		return err
	}

	rel.ResetStaging()
	r.cache.PurgeAsync(ctx, relationshipCacheKey(rel.ID))
	return nil
}

// BulkSave saves every relationship in one transaction, replacing each
// element of rels in place with its stored row.
func (r *RelationshipRepository) BulkSave(ctx context.Context, rels []models.MetatypeRelationship, user string) error {
	if len(rels) == 0 {
		return nil
	}
	for i := range rels {
		if rels[i].ID == uuid.Nil {
			if err := validateRelationship(&rels[i]); err != nil {
				return err
			}
		}
	}

	var keys []string
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		var stale []string
		for i := range rels {
			if rels[i].ID == uuid.Nil {
				continue
			}
			current, err := r.relationships.Retrieve(ctx, tx, rels[i].ID)
			if err != nil {
				return err
			}
			mergeRelationship(&rels[i], current)
			if err := validateRelationship(&rels[i]); err != nil {
				return err
			}
			stale = append(stale, relationshipCacheKey(rels[i].ID))
		}
		r.cache.Purge(ctx, stale...)

		if err := bulkWrite(ctx, r.relationships, tx, user, rels, relationshipID); err != nil {
			return err
		}
		for i := range rels {
			if err := r.saveKeys(ctx, tx, &rels[i], user); err != nil {
				return err
			}
			keys = append(keys, relationshipCacheKey(rels[i].ID))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range rels {
		rels[i].ResetStaging()
	}
	r.cache.PurgeAsync(ctx, keys...)
	return nil
}

func (r *RelationshipRepository) saveKeys(ctx context.Context, tx storage.Tx, rel *models.MetatypeRelationship, user string) error {
	if removed := rel.RemovedKeys(); len(removed) > 0 {
		if err := r.keys.BulkDelete(ctx, tx, removed); err != nil {
			return err
		}
	}
	for i := range rel.Keys {
		rel.Keys[i].MetatypeRelationshipID = rel.ID
		rel.Keys[i].ContainerID = rel.ContainerID
	}
	return bulkWrite(ctx, r.keys, tx, user, rel.Keys, relationshipKeyID)
}

// FindByID reads a relationship, with its keys when load is nested.
func (r *RelationshipRepository) FindByID(ctx context.Context, id uuid.UUID, load Load) (models.MetatypeRelationship, error) {
	if load.cacheable() {
		if rel, ok := lookup[models.MetatypeRelationship](ctx, r.cache, relationshipCacheKey(id)); ok {
			return rel, nil
		}
	}

	rel, err := r.relationships.Retrieve(ctx, nil, id)
	if err != nil || !load.Nested {
		return rel, err
	}
	if rel.Keys, err = r.keys.ListForRelationship(ctx, nil, id); err != nil {
		return rel, err
	}
	if load.cacheable() {
		r.cache.store(ctx, relationshipCacheKey(id), rel)
	}
	return rel, nil
}

func (r *RelationshipRepository) List(ctx context.Context, opts storage.ListOptions) ([]models.MetatypeRelationship, error) {
	return r.relationships.List(ctx, nil, opts)
}

// Delete permanently removes a relationship and, through the schema, its
// pairs. It refuses while any edge is typed by one of those pairs.
func (r *RelationshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var stale []string
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		rel, err := r.relationships.Retrieve(ctx, tx, id)
		if err != nil {
			return err
		}
		pairs, err := r.pairs.ListForRelationship(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			has, err := r.probe.EdgesForPair(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			if has {
				return hasDataConflict("relationship", rel.Name)
			}
			stale = append(stale, pairCacheKey(p.ID), metatypeCacheKey(p.OriginMetatypeID), metatypePairsCacheKey(p.OriginMetatypeID))
		}
		stale = append(stale, relationshipCacheKey(id))
		return r.relationships.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// DeleteMany permanently removes relationships the caller has already proven
// unreferenced.
func (r *RelationshipRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		return r.relationships.BulkDelete(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	stale := make([]string, 0, len(ids))
	for _, id := range ids {
		stale = append(stale, relationshipCacheKey(id))
	}
	r.cache.PurgeAsync(ctx, stale...)
	return nil
}

// Archive soft-deletes a relationship and its keys.
func (r *RelationshipRepository) Archive(ctx context.Context, id uuid.UUID, user string) error {
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		if err := r.relationships.Archive(ctx, tx, user, id); err != nil {
			return err
		}
		return r.keys.ArchiveForRelationship(ctx, tx, user, id)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, relationshipCacheKey(id))
	return nil
}

// Unarchive restores a relationship and its keys.
func (r *RelationshipRepository) Unarchive(ctx context.Context, id uuid.UUID, user string) error {
	err := inTx(ctx, r.tx, func(tx storage.Tx) error {
		if err := r.relationships.Unarchive(ctx, tx, user, id); err != nil {
			return err
		}
		return r.keys.UnarchiveForRelationship(ctx, tx, user, id)
	})
	if err != nil {
		return err
	}
	r.cache.PurgeAsync(ctx, relationshipCacheKey(id))
	return nil
}

func validateRelationship(rel *models.MetatypeRelationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	for i := range rel.Keys {
		if err := rel.Keys[i].Validate(); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "key "+rel.Keys[i].Name+" of relationship "+rel.Name+" is invalid")
		}
	}
	return nil
}

func mergeRelationship(rel *models.MetatypeRelationship, current models.MetatypeRelationship) {
	if rel.ContainerID == uuid.Nil {
		rel.ContainerID = current.ContainerID
	}
	if rel.OntologyVersion == nil {
		rel.OntologyVersion = current.OntologyVersion
	}
	if rel.Name == "" {
		rel.Name = current.Name
	}
	if rel.Description == "" {
		rel.Description = current.Description
	}
	rel.Archived = current.Archived
	rel.CreatedBy = current.CreatedBy
	rel.CreatedAt = current.CreatedAt
}

func relationshipID(r *models.MetatypeRelationship) uuid.UUID       { return r.ID }
func relationshipKeyID(k *models.MetatypeRelationshipKey) uuid.UUID { return k.ID }
