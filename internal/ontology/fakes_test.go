package ontology

import (
	"context"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	"github.com/graphwarehouse/engine/pkg/logger"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

type statusChange struct {
	status  models.VersionStatus
	message string
}

// world is an in-memory ontology store shared by every fake collaborator.
type world struct {
	mu        sync.Mutex
	metatypes map[uuid.UUID]models.Metatype
	keys      map[uuid.UUID]models.MetatypeKey
	rels      map[uuid.UUID]models.MetatypeRelationship
	pairs     map[uuid.UUID]models.MetatypeRelationshipPair
	links     map[uuid.UUID]uuid.UUID

	nodes map[uuid.UUID]bool
	edges map[uuid.UUID]bool

	statuses []statusChange
	alerts   []models.ContainerAlert

	keyErr      error
	inFlight    int
	maxInFlight int
	keyBatches  int
	refreshes   int
}

func newWorld() *world {
	return &world{
		metatypes: map[uuid.UUID]models.Metatype{},
		keys:      map[uuid.UUID]models.MetatypeKey{},
		rels:      map[uuid.UUID]models.MetatypeRelationship{},
		pairs:     map[uuid.UUID]models.MetatypeRelationshipPair{},
		links:     map[uuid.UUID]uuid.UUID{},
		nodes:     map[uuid.UUID]bool{},
		edges:     map[uuid.UUID]bool{},
	}
}

// snapshot is the persisted ontology, for before/after comparisons.
type snapshot struct {
	metatypes map[uuid.UUID]models.Metatype
	keys      map[uuid.UUID]models.MetatypeKey
	rels      map[uuid.UUID]models.MetatypeRelationship
	pairs     map[uuid.UUID]models.MetatypeRelationshipPair
	links     map[uuid.UUID]uuid.UUID
}

func (w *world) snapshot() snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return snapshot{
		metatypes: maps.Clone(w.metatypes),
		keys:      maps.Clone(w.keys),
		rels:      maps.Clone(w.rels),
		pairs:     maps.Clone(w.pairs),
		links:     maps.Clone(w.links),
	}
}

func (w *world) metatypeNamed(name string) models.Metatype {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.metatypes {
		if m.Name == name {
			return m
		}
	}
	return models.Metatype{}
}

func (w *world) pairNamed(name string) models.MetatypeRelationshipPair {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.pairs {
		if p.Name == name {
			return p
		}
	}
	return models.MetatypeRelationshipPair{}
}

func (w *world) keysOf(metatypeID uuid.UUID) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, k := range w.keys {
		if k.MetatypeID == metatypeID {
			out = append(out, k.Name)
		}
	}
	slices.Sort(out)
	return out
}

func (w *world) lastStatus() statusChange {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.statuses) == 0 {
		return statusChange{}
	}
	return w.statuses[len(w.statuses)-1]
}

func (w *world) lastAlert() models.ContainerAlert {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.alerts) == 0 {
		return models.ContainerAlert{}
	}
	return w.alerts[len(w.alerts)-1]
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func listed[T any](rows map[uuid.UUID]T, container func(T) uuid.UUID, name func(T) string, opts storage.ListOptions) []T {
	var out []T
	for _, r := range rows {
		if opts.ContainerID == uuid.Nil || container(r) == opts.ContainerID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return strings.Compare(name(a), name(b)) })
	return out
}

type fakeMetatypes struct{ *world }

func (f fakeMetatypes) List(_ context.Context, opts storage.ListOptions) ([]models.Metatype, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := listed(f.metatypes, func(m models.Metatype) uuid.UUID { return m.ContainerID }, func(m models.Metatype) string { return m.Name }, opts)
	for i := range out {
		if p, ok := f.links[out[i].ID]; ok {
			out[i].ParentID = &p
		}
	}
	return out, nil
}

func (f fakeMetatypes) BulkSave(_ context.Context, ms []models.Metatype, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range ms {
		assignID(&ms[i].ID)
		f.metatypes[ms[i].ID] = ms[i]
	}
	return nil
}

func (f fakeMetatypes) DeleteMany(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.metatypes, id)
		delete(f.links, id)
		maps.DeleteFunc(f.keys, func(_ uuid.UUID, k models.MetatypeKey) bool { return k.MetatypeID == id })
		maps.DeleteFunc(f.pairs, func(_ uuid.UUID, p models.MetatypeRelationshipPair) bool {
			return p.OriginMetatypeID == id || p.DestinationMetatypeID == id
		})
	}
	return nil
}

func (f fakeMetatypes) SetParents(_ context.Context, _ uuid.UUID, links map[uuid.UUID]uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for child, parent := range links {
		if parent == uuid.Nil {
			delete(f.links, child)
			continue
		}
		f.links[child] = parent
	}
	return nil
}

type fakeKeys struct{ *world }

func (f fakeKeys) ListSelf(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID][]models.MetatypeKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID][]models.MetatypeKey{}
	for _, k := range f.keys {
		if slices.Contains(ids, k.MetatypeID) {
			out[k.MetatypeID] = append(out[k.MetatypeID], k)
		}
	}
	return out, nil
}

func (f fakeKeys) BulkSave(_ context.Context, keys []models.MetatypeKey, _ string) error {
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.keyBatches++
	err := f.keyErr
	f.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err != nil {
		return err
	}
	for i := range keys {
		assignID(&keys[i].ID)
		f.keys[keys[i].ID] = keys[i]
	}
	return nil
}

func (f fakeKeys) DeleteMany(_ context.Context, keys []models.MetatypeKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.keys, k.ID)
	}
	return nil
}

func (f fakeKeys) RefreshView(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

type fakeRelationships struct{ *world }

func (f fakeRelationships) List(_ context.Context, opts storage.ListOptions) ([]models.MetatypeRelationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listed(f.rels, func(r models.MetatypeRelationship) uuid.UUID { return r.ContainerID }, func(r models.MetatypeRelationship) string { return r.Name }, opts), nil
}

func (f fakeRelationships) BulkSave(_ context.Context, rels []models.MetatypeRelationship, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range rels {
		assignID(&rels[i].ID)
		f.rels[rels[i].ID] = rels[i]
	}
	return nil
}

func (f fakeRelationships) DeleteMany(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.rels, id)
		maps.DeleteFunc(f.pairs, func(_ uuid.UUID, p models.MetatypeRelationshipPair) bool { return p.RelationshipID == id })
	}
	return nil
}

type fakePairs struct{ *world }

func (f fakePairs) List(_ context.Context, opts storage.ListOptions) ([]models.MetatypeRelationshipPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listed(f.pairs, func(p models.MetatypeRelationshipPair) uuid.UUID { return p.ContainerID }, func(p models.MetatypeRelationshipPair) string { return p.Name }, opts), nil
}

func (f fakePairs) BulkSave(_ context.Context, ps []models.MetatypeRelationshipPair, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range ps {
		assignID(&ps[i].ID)
		f.pairs[ps[i].ID] = ps[i]
	}
	return nil
}

func (f fakePairs) DeleteMany(_ context.Context, ps []models.MetatypeRelationshipPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range ps {
		delete(f.pairs, p.ID)
	}
	return nil
}

func (f fakePairs) RefreshView(context.Context) error { return nil }

type fakeProbe struct{ *world }

func (f fakeProbe) NodesForMetatype(_ context.Context, _ storage.Tx, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[id], nil
}

func (f fakeProbe) EdgesForPair(_ context.Context, _ storage.Tx, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edges[id], nil
}

type fakeVersions struct{ *world }

func (f fakeVersions) SetStatus(_ context.Context, _ uuid.UUID, status models.VersionStatus, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusChange{status: status, message: message})
	return nil
}

type fakeAlerts struct{ *world }

func (f fakeAlerts) Alert(_ context.Context, containerID uuid.UUID, kind models.AlertType, message, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, models.ContainerAlert{ContainerID: containerID, Type: kind, Message: message, CreatedBy: user})
	return nil
}

func newTestEngine(w *world, cfg Config) *Engine {
	return NewEngine(Deps{
		Metatypes:     fakeMetatypes{w},
		Keys:          fakeKeys{w},
		Relationships: fakeRelationships{w},
		Pairs:         fakePairs{w},
		Probe:         fakeProbe{w},
		Versions:      fakeVersions{w},
		Alerts:        fakeAlerts{w},
	}, cfg)
}
