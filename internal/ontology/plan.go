package ontology

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// Plan is the reconciliation of a candidate against a container's live
// ontology. Matched entries carry the stored row the candidate updates;
// everything in a Delete list was proven free of data when the plan was
// probed.
type Plan struct {
	Metatypes     map[string]models.Metatype
	Keys          map[uuid.UUID]map[string]models.MetatypeKey
	Pairs         map[string]models.MetatypeRelationshipPair
	Relationships map[string]models.MetatypeRelationship

	DeleteMetatypes     []models.Metatype
	DeleteKeys          []models.MetatypeKey
	DeletePairs         []models.MetatypeRelationshipPair
	DeleteRelationships []models.MetatypeRelationship
}

func newPlan() *Plan {
	return &Plan{
		Metatypes:     map[string]models.Metatype{},
		Keys:          map[uuid.UUID]map[string]models.MetatypeKey{},
		Pairs:         map[string]models.MetatypeRelationshipPair{},
		Relationships: map[string]models.MetatypeRelationship{},
	}
}

// Summary counts what applying the plan creates, updates and removes.
type Summary struct {
	MetatypesCreated, MetatypesUpdated, MetatypesRemoved             int
	KeysCreated, KeysUpdated, KeysRemoved                            int
	PairsCreated, PairsUpdated, PairsRemoved                         int
	RelationshipsCreated, RelationshipsUpdated, RelationshipsRemoved int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d metatypes created, %d updated, %d removed; "+
		"%d keys created, %d updated, %d removed; "+
		"%d relationship pairs created, %d updated, %d removed; "+
		"%d relationships created, %d updated, %d removed.",
		s.MetatypesCreated, s.MetatypesUpdated, s.MetatypesRemoved,
		s.KeysCreated, s.KeysUpdated, s.KeysRemoved,
		s.PairsCreated, s.PairsUpdated, s.PairsRemoved,
		s.RelationshipsCreated, s.RelationshipsUpdated, s.RelationshipsRemoved)
}

// planner diffs a candidate against the live tables. Without probing it
// never touches node or edge data, which is what a dry run wants.
type planner struct {
	metatypes     Metatypes
	keys          MetatypeKeys
	relationships Relationships
	pairs         Pairs
	probe         Probe
}

func (p *planner) plan(ctx context.Context, s *state, containerID uuid.UUID, probe bool) (*Plan, error) {
	live := storage.ListOptions{ContainerID: containerID}
	plan := newPlan()

	metatypes, err := p.metatypes.List(ctx, live)
	if err != nil {
		return nil, err
	}
	var matched []uuid.UUID
	for _, m := range metatypes {
		if _, ok := s.classByName[m.Name]; ok {
			plan.Metatypes[m.Name] = m
			matched = append(matched, m.ID)
			continue
		}
		if probe {
			if err := p.guardNodes(ctx, m.ID, fmt.Sprintf("Attempting to remove metatype %s.", m.Name), "metatype"); err != nil {
				return nil, err
			}
		}
		plan.DeleteMetatypes = append(plan.DeleteMetatypes, m)
	}

	if len(matched) > 0 {
		owned, err := p.keys.ListSelf(ctx, matched...)
		if err != nil {
			return nil, err
		}
		for _, name := range sortedNames(plan.Metatypes) {
			m := plan.Metatypes[name]
			wanted := s.keyNames(s.classByName[name])
			byName := map[string]models.MetatypeKey{}
			for _, k := range owned[m.ID] {
				if wanted[k.Name] {
					byName[k.Name] = k
					continue
				}
				if probe {
					if err := p.guardNodes(ctx, m.ID, fmt.Sprintf("Attempting to remove metatype %s key %s.", m.Name, k.Name), "metatype"); err != nil {
						return nil, err
					}
				}
				plan.DeleteKeys = append(plan.DeleteKeys, k)
			}
			plan.Keys[m.ID] = byName
		}
	}

	pairs, err := p.pairs.List(ctx, live)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		if s.allPairNames[pair.Name] {
			plan.Pairs[pair.Name] = pair
			continue
		}
		if probe {
			has, err := p.probe.EdgesForPair(ctx, nil, pair.ID)
			if err != nil {
				return nil, err
			}
			if has {
				return nil, conflict(fmt.Sprintf("Attempting to remove metatype relationship pair %s.", pair.Name), "relationship pair")
			}
		}
		plan.DeletePairs = append(plan.DeletePairs, pair)
	}

	rels, err := p.relationships.List(ctx, live)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		if _, ok := s.relationshipByName[r.Name]; ok {
			plan.Relationships[r.Name] = r
			continue
		}
		plan.DeleteRelationships = append(plan.DeleteRelationships, r)
	}
	return plan, nil
}

func (p *planner) guardNodes(ctx context.Context, metatypeID uuid.UUID, what, kind string) error {
	has, err := p.probe.NodesForMetatype(ctx, nil, metatypeID)
	if err != nil {
		return err
	}
	if has {
		return conflict(what, kind)
	}
	return nil
}

func conflict(what, kind string) error {
	return appErr.New(appErr.CodeConflict,
		what+" This "+kind+" has associated data, please delete the data before container update.")
}

// summarize counts the effect of applying plan for s.
func summarize(s *state, plan *Plan) Summary {
	var sum Summary
	for i := range s.candidate.Classes {
		cl := &s.candidate.Classes[i]
		m, ok := plan.Metatypes[cl.Name]
		if ok {
			sum.MetatypesUpdated++
		} else {
			sum.MetatypesCreated++
		}
		existing := plan.Keys[m.ID]
		for _, k := range s.keysOf(cl) {
			if _, ok := existing[k.Name]; ok {
				sum.KeysUpdated++
			} else {
				sum.KeysCreated++
			}
		}
		for _, ps := range s.pairsOf(cl) {
			if _, ok := plan.Pairs[ps.name]; ok {
				sum.PairsUpdated++
			} else {
				sum.PairsCreated++
			}
		}
	}
	for _, r := range s.candidate.Relationships {
		if _, ok := plan.Relationships[r.Name]; ok {
			sum.RelationshipsUpdated++
		} else {
			sum.RelationshipsCreated++
		}
	}
	sum.MetatypesRemoved = len(plan.DeleteMetatypes)
	sum.KeysRemoved = len(plan.DeleteKeys)
	sum.PairsRemoved = len(plan.DeletePairs)
	sum.RelationshipsRemoved = len(plan.DeleteRelationships)
	return sum
}
