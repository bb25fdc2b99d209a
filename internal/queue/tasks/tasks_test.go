package tasks

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/ontology"
	"github.com/graphwarehouse/engine/internal/services"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// Mock implementations
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Apply(ctx context.Context, c *ontology.Candidate, t ontology.Target, user string, opts ontology.Options) (string, error) {
	args := m.Called(ctx, c, t, user, opts)
	return args.String(0), args.Error(1)
}

func (m *mockEngine) Rollback(ctx context.Context, t ontology.Target, user, cause string) {
	m.Called(ctx, t, user, cause)
}

type mockContainers struct {
	mock.Mock
}

func (m *mockContainers) FindByID(ctx context.Context, id uuid.UUID) (models.Container, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Container), args.Error(1)
}

type mockVersions struct {
	mock.Mock
}

func (m *mockVersions) Stale(ctx context.Context, olderThan time.Duration) ([]models.OntologyVersion, error) {
	args := m.Called(ctx, olderThan)
	if v := args.Get(0); v != nil {
		return v.([]models.OntologyVersion), args.Error(1)
	}
	return nil, args.Error(1)
}

func evolveTask(t *testing.T, container models.Container, versionID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := services.NewEvolveTask(services.Job{
		Candidate: &ontology.Candidate{Name: "Plant", Classes: []ontology.Class{{ID: "ex#Asset", Name: "Asset"}}},
		Target:    ontology.Target{Container: container, VersionID: &versionID},
		User:      "alice",
		Options:   ontology.Options{Update: true},
	})
	require.NoError(t, err)
	return task
}

func TestHandleEvolveAppliesCandidate(t *testing.T) {
	engine := &mockEngine{}
	containers := &mockContainers{}
	container := models.Container{ID: uuid.New(), Name: "plant", Config: models.ContainerConfig{OntologyVersioningEnabled: true}}
	versionID := uuid.New()

	containers.On("FindByID", mock.Anything, container.ID).Return(container, nil).Once()
	engine.On("Apply", mock.Anything,
		mock.MatchedBy(func(c *ontology.Candidate) bool { return c.Name == "Plant" }),
		ontology.Target{Container: container, VersionID: &versionID},
		"alice", ontology.Options{Update: true}).
		Return(container.ID.String(), nil).Once()

	h := NewEvolveTaskHandler(engine, containers)
	require.NoError(t, h.HandleEvolve(context.Background(), evolveTask(t, container, versionID)))

	engine.AssertExpectations(t)
	containers.AssertExpectations(t)
}

func TestHandleEvolveDoesNotRetryFailedRun(t *testing.T) {
	engine := &mockEngine{}
	containers := &mockContainers{}
	container := models.Container{ID: uuid.New(), Name: "plant"}

	containers.On("FindByID", mock.Anything, container.ID).Return(container, nil).Once()
	engine.On("Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", appErr.New(appErr.CodeConflict, "has associated data")).Once()

	err := NewEvolveTaskHandler(engine, containers).HandleEvolve(context.Background(), evolveTask(t, container, uuid.New()))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	engine.AssertNotCalled(t, "Rollback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvolveRollsBackWhenContainerIsMissing(t *testing.T) {
	engine := &mockEngine{}
	containers := &mockContainers{}
	container := models.Container{ID: uuid.New()}
	versionID := uuid.New()
	missing := appErr.New(appErr.CodeNotFound, "container not found")

	containers.On("FindByID", mock.Anything, container.ID).Return(models.Container{}, missing).Once()
	engine.On("Rollback", mock.Anything,
		ontology.Target{Container: models.Container{ID: container.ID}, VersionID: &versionID},
		"alice", missing.Error()).Once()

	err := NewEvolveTaskHandler(engine, containers).HandleEvolve(context.Background(), evolveTask(t, container, versionID))
	require.Error(t, err)
	engine.AssertExpectations(t)
}

func TestHandleEvolveRejectsInvalidPayload(t *testing.T) {
	engine := &mockEngine{}
	containers := &mockContainers{}
	engine.On("Rollback", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once()

	err := NewEvolveTaskHandler(engine, containers).HandleEvolve(context.Background(),
		asynq.NewTask(services.TypeEvolve, []byte("{invalid")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	containers.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestHandleSweepRollsBackStaleVersions(t *testing.T) {
	engine := &mockEngine{}
	containers := &mockContainers{}
	versions := &mockVersions{}

	live := models.Container{ID: uuid.New(), Name: "live"}
	gone := uuid.New()
	stale := []models.OntologyVersion{
		{ID: uuid.New(), ContainerID: live.ID, Status: models.VersionGenerating},
		{ID: uuid.New(), ContainerID: gone, Status: models.VersionGenerating},
	}

	versions.On("Stale", mock.Anything, time.Hour).Return(stale, nil).Once()
	containers.On("FindByID", mock.Anything, live.ID).Return(live, nil).Once()
	containers.On("FindByID", mock.Anything, gone).
		Return(models.Container{}, errors.New("connection reset")).Once()
	engine.On("Rollback", mock.Anything,
		ontology.Target{Container: live, VersionID: &stale[0].ID}, "system", AbandonedCause).Once()
	engine.On("Rollback", mock.Anything,
		ontology.Target{Container: models.Container{ID: gone}, VersionID: &stale[1].ID}, "system", AbandonedCause).Once()

	h := NewSweepTaskHandler(versions, containers, engine, time.Hour)
	require.NoError(t, h.HandleSweep(context.Background(), NewSweepTask()))

	engine.AssertExpectations(t)
	versions.AssertExpectations(t)
}

func TestHandleSweepReportsListFailure(t *testing.T) {
	versions := &mockVersions{}
	versions.On("Stale", mock.Anything, time.Minute).Return(nil, appErr.New(appErr.CodeStorage, "down")).Once()

	h := NewSweepTaskHandler(versions, &mockContainers{}, &mockEngine{}, time.Minute)
	require.Error(t, h.HandleSweep(context.Background(), NewSweepTask()))
}
