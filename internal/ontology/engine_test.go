package ontology

import (
	"context"
	"maps"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveTarget() Target {
	v := uuid.New()
	return Target{Container: models.Container{ID: uuid.New(), Name: "plant"}, VersionID: &v}
}

// seed imports the fixture so update runs have something to diff against.
func seed(t *testing.T, e *Engine, target Target) {
	t.Helper()
	_, err := e.Apply(context.Background(), plant(t), target, "seed", Options{})
	require.NoError(t, err)
}

func withoutClass(c *Candidate, name string) *Candidate {
	c.Classes = slices.DeleteFunc(c.Classes, func(cl Class) bool { return cl.Name == name })
	return c
}

func TestApplyCreatesOntology(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{BatchSize: 1, Concurrency: 2})
	target := liveTarget()

	id, err := e.Apply(context.Background(), plant(t), target, "alice", Options{})
	require.NoError(t, err)
	assert.Equal(t, target.Container.ID.String(), id)

	assert.Len(t, w.metatypes, 3)
	assert.Len(t, w.keys, 3)
	assert.Len(t, w.rels, 1)
	assert.Len(t, w.pairs, 1)

	asset, pump, site := w.metatypeNamed("Asset"), w.metatypeNamed("Pump"), w.metatypeNamed("Site")
	assert.Equal(t, target.Container.ID, asset.ContainerID)
	assert.Nil(t, asset.OntologyVersion)
	assert.Equal(t, asset.ID, w.links[pump.ID])
	assert.Equal(t, []string{"serial number"}, w.keysOf(asset.ID))
	assert.Equal(t, []string{"flow rate", "status"}, w.keysOf(pump.ID))

	pair := w.pairNamed("Asset : located at : Site")
	assert.Equal(t, asset.ID, pair.OriginMetatypeID)
	assert.Equal(t, site.ID, pair.DestinationMetatypeID)
	assert.Equal(t, models.ManyToMany, pair.RelationshipType)

	assert.Equal(t, 3, w.keyBatches)
	assert.LessOrEqual(t, w.maxInFlight, 2)

	assert.Equal(t, models.VersionPublished, w.lastStatus().status)
	assert.Equal(t, models.AlertInfo, w.lastAlert().Type)
	assert.Equal(t, "Container ontology successfully loaded", w.lastAlert().Message)
	assert.Equal(t, "alice", w.lastAlert().CreatedBy)
}

func TestApplyStampsVersionWhenVersioned(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	target.Container.Config.OntologyVersioningEnabled = true

	_, err := e.Apply(context.Background(), plant(t), target, "alice", Options{Update: true})
	require.NoError(t, err)

	for _, m := range w.metatypes {
		require.NotNil(t, m.OntologyVersion)
		assert.Equal(t, *target.VersionID, *m.OntologyVersion)
	}
	assert.Equal(t, models.VersionReady, w.lastStatus().status)
}

func TestReimportIsIdempotent(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{BatchSize: 2})
	target := liveTarget()
	seed(t, e, target)
	before := w.snapshot()

	_, err := e.Apply(context.Background(), plant(t), target, "alice", Options{Update: true})
	require.NoError(t, err)

	after := w.snapshot()
	assert.ElementsMatch(t, slices.Collect(maps.Keys(before.metatypes)), slices.Collect(maps.Keys(after.metatypes)))
	assert.ElementsMatch(t, slices.Collect(maps.Keys(before.keys)), slices.Collect(maps.Keys(after.keys)))
	assert.ElementsMatch(t, slices.Collect(maps.Keys(before.pairs)), slices.Collect(maps.Keys(after.pairs)))
	assert.ElementsMatch(t, slices.Collect(maps.Keys(before.rels)), slices.Collect(maps.Keys(after.rels)))
	assert.Equal(t, before.links, after.links)
	assert.Equal(t, models.VersionPublished, w.lastStatus().status)
}

func TestUpdateRefusesToRemoveMetatypeWithNodes(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	w.nodes[w.metatypeNamed("Pump").ID] = true
	before := w.snapshot()

	_, err := e.Apply(context.Background(), withoutClass(plant(t), "Pump"), target, "alice", Options{Update: true})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	assert.Contains(t, err.Error(), "Attempting to remove metatype Pump.")
	assert.Contains(t, err.Error(), "please delete the data before container update")

	assert.Equal(t, before, w.snapshot())
	assert.Equal(t, models.VersionPublished, w.lastStatus().status)
	assert.Equal(t, err.Error(), w.lastStatus().message)
	assert.Equal(t, models.AlertError, w.lastAlert().Type)
	assert.Equal(t, "Unable to import ontology. "+err.Error(), w.lastAlert().Message)
}

func TestUpdateRemovesMetatypeWithoutData(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	pump := w.metatypeNamed("Pump")

	_, err := e.Apply(context.Background(), withoutClass(plant(t), "Pump"), target, "alice", Options{Update: true})
	require.NoError(t, err)

	assert.Len(t, w.metatypes, 2)
	assert.Empty(t, w.keysOf(pump.ID))
	assert.NotContains(t, w.links, pump.ID)
	assert.Equal(t, models.AlertInfo, w.lastAlert().Type)
}

func TestUpdateRefusesToRemoveKeyWithNodes(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	w.nodes[w.metatypeNamed("Pump").ID] = true
	before := w.snapshot()

	c := plant(t)
	c.Classes[1].Properties = c.Classes[1].Properties[:1]
	_, err := e.Apply(context.Background(), c, target, "alice", Options{Update: true})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	assert.Contains(t, err.Error(), "Attempting to remove metatype Pump key status.")
	assert.Equal(t, before, w.snapshot())
}

func TestUpdateRemovesKeyWithoutData(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	pump := w.metatypeNamed("Pump")

	c := plant(t)
	c.Classes[1].Properties = c.Classes[1].Properties[:1]
	_, err := e.Apply(context.Background(), c, target, "alice", Options{Update: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"flow rate"}, w.keysOf(pump.ID))
	assert.Equal(t, pump.ID, w.metatypeNamed("Pump").ID)
}

func TestUpdateRefusesToRemovePairWithEdges(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	w.edges[w.pairNamed("Asset : located at : Site").ID] = true
	before := w.snapshot()

	c := plant(t)
	c.Classes[0].Properties = c.Classes[0].Properties[:1]
	_, err := e.Apply(context.Background(), c, target, "alice", Options{Update: true})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	assert.Contains(t, err.Error(), "Attempting to remove metatype relationship pair Asset : located at : Site.")
	assert.Contains(t, err.Error(), "This relationship pair has associated data")
	assert.Equal(t, before, w.snapshot())
}

func TestUpdateRemovesPairButKeepsDeclaredRelationship(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)

	c := plant(t)
	c.Classes[0].Properties = c.Classes[0].Properties[:1]
	_, err := e.Apply(context.Background(), c, target, "alice", Options{Update: true})
	require.NoError(t, err)

	assert.Empty(t, w.pairs)
	assert.Len(t, w.rels, 1)
}

func TestUpdateDetachesClassThatBecameRoot(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	pump := w.metatypeNamed("Pump")
	require.Contains(t, w.links, pump.ID)

	c := plant(t)
	c.Classes[1].Parent = ""
	_, err := e.Apply(context.Background(), c, target, "alice", Options{Update: true})
	require.NoError(t, err)

	assert.NotContains(t, w.links, pump.ID)
}

func TestVersionedFailureMarksVersionError(t *testing.T) {
	w := newWorld()
	w.keyErr = appErr.New(appErr.CodeStorage, "disk full")
	e := newTestEngine(w, Config{})
	target := liveTarget()
	target.Container.Config.OntologyVersioningEnabled = true

	_, err := e.Apply(context.Background(), plant(t), target, "alice", Options{})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeStorage))

	last := w.lastStatus()
	assert.Equal(t, models.VersionError, last.status)
	assert.Contains(t, last.message, "disk full")
	assert.Equal(t, models.AlertError, w.lastAlert().Type)
	assert.Contains(t, w.lastAlert().Message, "Unable to import ontology.")
	assert.NotContains(t, w.lastAlert().Message, partialUpdateNotice)
}

func TestApplyRollsBackCycleBeforeWriting(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()

	c := plant(t)
	c.Classes[0].Parent = "ex#Pump"
	_, err := e.Apply(context.Background(), c, target, "alice", Options{})
	require.Error(t, err)

	assert.Empty(t, w.metatypes)
	assert.Equal(t, models.VersionPublished, w.lastStatus().status)
	assert.Equal(t, models.AlertError, w.lastAlert().Type)
	assert.NotContains(t, w.lastAlert().Message, partialUpdateNotice)
}

func TestApplyRollsBackUnresolvedReferenceBeforeWriting(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()

	c := plant(t)
	c.Classes[0].Properties = append(c.Classes[0].Properties, Property{Kind: Primitive, Ref: "ex#missing"})
	var err error
	require.NotPanics(t, func() {
		_, err = e.Apply(context.Background(), c, target, "alice", Options{})
	})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	assert.Contains(t, err.Error(), "ex#missing")

	assert.Empty(t, w.metatypes)
	assert.Equal(t, models.VersionPublished, w.lastStatus().status)
	assert.Equal(t, "Unable to import ontology. "+err.Error(), w.lastAlert().Message)
}

func TestApplyRollsBackUnknownLinkTarget(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})

	c := plant(t)
	c.Classes[0].Properties = append(c.Classes[0].Properties,
		Property{Kind: Link, Ref: c.Relationships[0].ID, Target: "ex#Nowhere"})
	var err error
	require.NotPanics(t, func() {
		_, err = e.Apply(context.Background(), c, liveTarget(), "alice", Options{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ex#Nowhere")
	assert.Empty(t, w.metatypes)
}

func TestUnversionedFailureAfterWritesWarnsOfPartialUpdate(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	w.keyErr = appErr.New(appErr.CodeStorage, "disk full")

	_, err := e.Apply(context.Background(), withoutClass(plant(t), "Pump"), target, "alice", Options{Update: true})
	require.Error(t, err)

	assert.Equal(t, models.VersionPublished, w.lastStatus().status)
	assert.Equal(t, err.Error(), w.lastStatus().message)
	assert.Equal(t, models.AlertError, w.lastAlert().Type)
	assert.Equal(t, "Unable to import ontology. "+err.Error()+partialUpdateNotice, w.lastAlert().Message)
}

func TestDryRunExplainsCreate(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})

	out, err := e.Apply(context.Background(), plant(t), Target{}, "alice", Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "Plant will be created. Process plant equipment. "+
		"The ontology will contain 3 classes, 3 data properties and 1 relationships.", out)
	assert.Empty(t, w.metatypes)
	assert.Empty(t, w.statuses)
	assert.Empty(t, w.alerts)
}

func TestDryRunExplainsUpdateWithoutProbing(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	target := liveTarget()
	seed(t, e, target)
	w.nodes[w.metatypeNamed("Pump").ID] = true
	before := w.snapshot()
	alerts := len(w.alerts)

	out, err := e.Apply(context.Background(), withoutClass(plant(t), "Pump"), Target{Container: target.Container}, "alice",
		Options{DryRun: true, Update: true})
	require.NoError(t, err)
	assert.Equal(t, "Plant will be updated. Process plant equipment. "+
		"The ontology will contain 2 classes, 3 data properties and 1 relationships. "+
		"0 metatypes created, 2 updated, 1 removed; "+
		"0 keys created, 1 updated, 0 removed; "+
		"0 relationship pairs created, 1 updated, 0 removed; "+
		"0 relationships created, 1 updated, 0 removed.", out)
	assert.Equal(t, before, w.snapshot())
	assert.Len(t, w.alerts, alerts)
}

func TestRollbackWithoutContainerOnlyTouchesVersion(t *testing.T) {
	w := newWorld()
	e := newTestEngine(w, Config{})
	v := uuid.New()

	e.Rollback(context.Background(), Target{VersionID: &v}, "sweeper", "ontology import abandoned")

	assert.Equal(t, statusChange{status: models.VersionPublished, message: "ontology import abandoned"}, w.lastStatus())
	assert.Empty(t, w.alerts)
}
