package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relationshipKey(name string) models.MetatypeRelationshipKey {
	return models.MetatypeRelationshipKey{KeyDefinition: models.KeyDefinition{
		Name:         name,
		PropertyName: name,
		DataType:     models.DataTypeNumber,
	}}
}

func TestRelationshipSaveRemovesStagedKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rel := models.MetatypeRelationship{ContainerID: containerID, Name: "feeds",
		Keys: []models.MetatypeRelationshipKey{relationshipKey("rate"), relationshipKey("pressure")}}
	require.NoError(t, f.rels.Save(ctx, &rel, "alice"))
	require.Len(t, f.db.relKeys, 2)
	for _, k := range rel.Keys {
		assert.Equal(t, rel.ID, k.MetatypeRelationshipID)
		assert.Equal(t, containerID, k.ContainerID)
	}

	dropped := rel.Keys[0].ID
	rel.RemoveKey(dropped)
	require.Equal(t, []uuid.UUID{dropped}, rel.RemovedKeys())
	require.NoError(t, f.rels.Save(ctx, &rel, "bob"))

	assert.Empty(t, rel.RemovedKeys())
	assert.NotContains(t, f.db.relKeys, dropped)

	got, err := f.rels.FindByID(ctx, rel.ID, Nested)
	require.NoError(t, err)
	require.Len(t, got.Keys, 1)
	assert.Equal(t, "pressure", got.Keys[0].Name)
}

func TestRelationshipSaveInvalidatesCachedCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rel := models.MetatypeRelationship{ContainerID: containerID, Name: "feeds"}
	require.NoError(t, f.rels.Save(ctx, &rel, "alice"))
	f.cache.Wait()

	_, err := f.rels.FindByID(ctx, rel.ID, Nested)
	require.NoError(t, err)
	require.True(t, f.raw.has(relationshipCacheKey(rel.ID)))

	patch := models.MetatypeRelationship{ID: rel.ID, Description: "moves fluid"}
	require.NoError(t, f.rels.Save(ctx, &patch, "bob"))
	f.cache.Wait()
	assert.False(t, f.raw.has(relationshipCacheKey(rel.ID)))

	got, err := f.rels.FindByID(ctx, rel.ID, Nested)
	require.NoError(t, err)
	assert.Equal(t, "feeds", got.Name)
	assert.Equal(t, "moves fluid", got.Description)
}

func TestRelationshipBulkSaveKeepsPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing := models.MetatypeRelationship{ContainerID: containerID, Name: "located at", Description: "old"}
	require.NoError(t, f.rels.Save(ctx, &existing, "alice"))

	batch := []models.MetatypeRelationship{
		{ContainerID: containerID, Name: "feeds", Keys: []models.MetatypeRelationshipKey{relationshipKey("rate")}},
		{ID: existing.ID, Description: "new"},
	}
	require.NoError(t, f.rels.BulkSave(ctx, batch, "alice"))

	assert.NotEqual(t, uuid.Nil, batch[0].ID)
	assert.Equal(t, "feeds", batch[0].Name)
	require.Len(t, batch[0].Keys, 1)
	assert.Equal(t, batch[0].ID, batch[0].Keys[0].MetatypeRelationshipID)
	assert.NotEqual(t, uuid.Nil, batch[0].Keys[0].ID)
	assert.Equal(t, existing.ID, batch[1].ID)
	assert.Equal(t, "located at", batch[1].Name)
	assert.Equal(t, "new", f.db.relationships[existing.ID].Description)
}

func TestRelationshipBulkSaveRollsBackWhenKeysFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing := models.MetatypeRelationship{ContainerID: containerID, Name: "located at"}
	require.NoError(t, f.rels.Save(ctx, &existing, "alice"))

	f.db.relKeyErr = appErr.New(appErr.CodeStorage, "disk full")
	batch := []models.MetatypeRelationship{
		{ID: existing.ID, Name: "sits in"},
		{ContainerID: containerID, Name: "feeds", Keys: []models.MetatypeRelationshipKey{relationshipKey("rate")}},
	}
	err := f.rels.BulkSave(ctx, batch, "alice")
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeStorage))

	f.db.relKeyErr = nil
	require.Len(t, f.db.relationships, 1)
	assert.Equal(t, "located at", f.db.relationships[existing.ID].Name)
	assert.Empty(t, f.db.relKeys)
}

func TestRelationshipBulkSaveRejectsInvalidWithoutTouchingStorage(t *testing.T) {
	f := newFixture(t)

	batch := []models.MetatypeRelationship{
		{ContainerID: containerID, Name: "feeds"},
		{ContainerID: containerID},
	}
	err := f.rels.BulkSave(context.Background(), batch, "alice")
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	assert.Zero(t, f.db.begins)
	assert.Empty(t, f.db.relationships)
}

func TestRelationshipDeleteRefusesWhenPairHasEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asset := models.Metatype{ContainerID: containerID, Name: "Asset"}
	require.NoError(t, f.repo.Save(ctx, &asset, "alice"))
	rel := models.MetatypeRelationship{ContainerID: containerID, Name: "feeds"}
	require.NoError(t, f.rels.Save(ctx, &rel, "alice"))
	p := models.MetatypeRelationshipPair{
		ContainerID:           containerID,
		Name:                  models.PairName("Asset", "feeds", "Asset"),
		OriginMetatypeID:      asset.ID,
		DestinationMetatypeID: asset.ID,
		RelationshipID:        rel.ID,
		RelationshipType:      models.ManyToMany,
	}
	require.NoError(t, f.pairs.Save(ctx, &p, "alice"))

	f.db.withEdges[p.ID] = true
	err := f.rels.Delete(ctx, rel.ID)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	assert.Contains(t, f.db.relationships, rel.ID)

	delete(f.db.withEdges, p.ID)
	require.NoError(t, f.rels.Delete(ctx, rel.ID))
	assert.NotContains(t, f.db.relationships, rel.ID)
}
