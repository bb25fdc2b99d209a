package services

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/ontology"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

type mockEvolver struct {
	mock.Mock
}

func (m *mockEvolver) Apply(ctx context.Context, c *ontology.Candidate, t ontology.Target, user string, opts ontology.Options) (string, error) {
	args := m.Called(ctx, c, t, user, opts)
	return args.String(0), args.Error(1)
}

func (m *mockEvolver) Rollback(ctx context.Context, t ontology.Target, user, cause string) {
	m.Called(ctx, t, user, cause)
}

type mockContainers struct {
	mock.Mock
}

func (m *mockContainers) Create(ctx context.Context, c *models.Container, user string) error {
	args := m.Called(ctx, c, user)
	return args.Error(0)
}

func (m *mockContainers) FindByID(ctx context.Context, id uuid.UUID) (models.Container, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Container), args.Error(1)
}

type mockVersions struct {
	mock.Mock
}

func (m *mockVersions) Create(ctx context.Context, v *models.OntologyVersion, user string) error {
	args := m.Called(ctx, v, user)
	return args.Error(0)
}

func (m *mockVersions) Preferred(ctx context.Context, containerID uuid.UUID) (models.OntologyVersion, error) {
	args := m.Called(ctx, containerID)
	return args.Get(0).(models.OntologyVersion), args.Error(1)
}

func (m *mockVersions) SetStatus(ctx context.Context, id uuid.UUID, status models.VersionStatus, message string) error {
	args := m.Called(ctx, id, status, message)
	return args.Error(0)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, job Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func candidate() *ontology.Candidate {
	return &ontology.Candidate{
		Name:        "Plant",
		Description: "Process plant equipment",
		Classes:     []ontology.Class{{ID: "ex#Asset", Name: "Asset"}},
	}
}
