package ontology

import (
	"context"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"golang.org/x/sync/errgroup"
)

// writer applies a plan. Deletes go first, then relationships and
// metatypes, then keys and pairs in chunks, and inheritance last.
type writer struct {
	metatypes     Metatypes
	keys          MetatypeKeys
	relationships Relationships
	pairs         Pairs

	batchSize   int
	concurrency int
}

// written counts rows saved per entity kind. committed is set once any
// write has reached storage.
type written struct {
	metatypes, keys, pairs, relationships int
	committed                             bool
}

func (w *writer) write(ctx context.Context, s *state, plan *Plan, containerID uuid.UUID, version *uuid.UUID, user string) (written, error) {
	var out written
	if err := w.remove(ctx, plan, &out); err != nil {
		return out, err
	}

	rels := make([]models.MetatypeRelationship, 0, len(s.candidate.Relationships))
	for _, r := range s.candidate.Relationships {
		rel := models.MetatypeRelationship{
			ContainerID:     containerID,
			OntologyVersion: version,
			Name:            r.Name,
			Description:     r.Description,
		}
		if existing, ok := plan.Relationships[r.Name]; ok {
			rel.ID = existing.ID
		}
		rels = append(rels, rel)
	}
	if err := w.relationships.BulkSave(ctx, rels, user); err != nil {
		return out, err
	}
	out.relationships = len(rels)
	out.committed = out.committed || len(rels) > 0
	relID := make(map[string]uuid.UUID, len(rels))
	for _, r := range rels {
		relID[r.Name] = r.ID
	}

	metatypes := make([]models.Metatype, 0, len(s.candidate.Classes))
	for _, cl := range s.candidate.Classes {
		m := models.Metatype{
			ContainerID:     containerID,
			OntologyVersion: version,
			Name:            cl.Name,
			Description:     cl.Description,
		}
		if existing, ok := plan.Metatypes[cl.Name]; ok {
			m.ID = existing.ID
		}
		metatypes = append(metatypes, m)
	}
	if err := w.metatypes.BulkSave(ctx, metatypes, user); err != nil {
		return out, err
	}
	out.metatypes = len(metatypes)
	out.committed = out.committed || len(metatypes) > 0
	metaID := make(map[string]uuid.UUID, len(metatypes))
	for _, m := range metatypes {
		metaID[m.Name] = m.ID
	}

	var keys []models.MetatypeKey
	var pairs []models.MetatypeRelationshipPair
	for i := range s.candidate.Classes {
		cl := &s.candidate.Classes[i]
		id := metaID[cl.Name]
		existing := plan.Keys[plan.Metatypes[cl.Name].ID]
		for _, k := range s.keysOf(cl) {
			k.MetatypeID = id
			k.ContainerID = containerID
			if old, ok := existing[k.Name]; ok {
				k.ID = old.ID
			}
			keys = append(keys, k)
		}
		for _, ps := range s.pairsOf(cl) {
			p := models.MetatypeRelationshipPair{
				ContainerID:           containerID,
				OntologyVersion:       version,
				Name:                  ps.name,
				OriginMetatypeID:      id,
				DestinationMetatypeID: metaID[ps.destination],
				RelationshipID:        relID[ps.relationship],
				RelationshipType:      models.ManyToMany,
			}
			if old, ok := plan.Pairs[ps.name]; ok {
				p.ID = old.ID
			}
			pairs = append(pairs, p)
		}
	}

	var saved atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for chunk := range slices.Chunk(keys, w.batchSize) {
		g.Go(func() error { return markSaved(&saved, w.keys.BulkSave(gctx, chunk, user)) })
	}
	for chunk := range slices.Chunk(pairs, w.batchSize) {
		g.Go(func() error { return markSaved(&saved, w.pairs.BulkSave(gctx, chunk, user)) })
	}
	err := g.Wait()
	out.committed = out.committed || saved.Load()
	if err != nil {
		return out, err
	}
	out.keys, out.pairs = len(keys), len(pairs)

	links := map[uuid.UUID]uuid.UUID{}
	for i := range s.candidate.Classes {
		cl := &s.candidate.Classes[i]
		if parent := s.parentOf(cl); parent != nil {
			links[metaID[cl.Name]] = metaID[parent.Name]
		} else if old, ok := plan.Metatypes[cl.Name]; ok && old.ParentID != nil {
			links[old.ID] = uuid.Nil
		}
	}
	if err := w.metatypes.SetParents(ctx, containerID, links); err != nil {
		return out, err
	}
	return out, nil
}

func markSaved(saved *atomic.Bool, err error) error {
	if err == nil {
		saved.Store(true)
	}
	return err
}

// remove deletes everything the plan dropped, dependents first. Each step
// commits on its own.
func (w *writer) remove(ctx context.Context, plan *Plan, out *written) error {
	if err := w.pairs.DeleteMany(ctx, plan.DeletePairs); err != nil {
		return err
	}
	out.committed = out.committed || len(plan.DeletePairs) > 0
	if err := w.keys.DeleteMany(ctx, plan.DeleteKeys); err != nil {
		return err
	}
	out.committed = out.committed || len(plan.DeleteKeys) > 0
	ids := make([]uuid.UUID, 0, len(plan.DeleteMetatypes))
	for _, m := range plan.DeleteMetatypes {
		ids = append(ids, m.ID)
	}
	if err := w.metatypes.DeleteMany(ctx, ids); err != nil {
		return err
	}
	out.committed = out.committed || len(ids) > 0
	relIDs := make([]uuid.UUID, 0, len(plan.DeleteRelationships))
	for _, r := range plan.DeleteRelationships {
		relIDs = append(relIDs, r.ID)
	}
	if err := w.relationships.DeleteMany(ctx, relIDs); err != nil {
		return err
	}
	out.committed = out.committed || len(relIDs) > 0
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
