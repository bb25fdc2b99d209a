package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/ontology"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testJob() Job {
	v := uuid.New()
	return Job{
		Candidate: candidate(),
		Target:    ontology.Target{Container: models.Container{ID: uuid.New()}, VersionID: &v},
		User:      "alice",
		Options:   ontology.Options{Update: true},
	}
}

func TestInlineDispatcherRunsJob(t *testing.T) {
	engine := &mockEvolver{}
	job := testJob()
	engine.On("Apply", mock.Anything, job.Candidate, job.Target, "alice", job.Options).
		Return(job.Target.Container.ID.String(), nil).Once()

	d := NewInlineDispatcher(engine)
	require.NoError(t, d.Dispatch(context.Background(), job))
	d.Wait()

	engine.AssertExpectations(t)
	engine.AssertNotCalled(t, "Rollback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInlineDispatcherLeavesFailedRunsToEngine(t *testing.T) {
	engine := &mockEvolver{}
	job := testJob()
	engine.On("Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", appErr.New(appErr.CodeConflict, "has associated data")).Once()

	d := NewInlineDispatcher(engine)
	require.NoError(t, d.Dispatch(context.Background(), job))
	d.Wait()

	engine.AssertNotCalled(t, "Rollback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInlineDispatcherRollsBackOnPanic(t *testing.T) {
	engine := &mockEvolver{}
	job := testJob()
	engine.On("Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("nil map") }).Once()
	engine.On("Rollback", mock.Anything, job.Target, "alice",
		mock.MatchedBy(func(cause string) bool { return cause == "ontology import worker panicked: nil map" })).Once()

	d := NewInlineDispatcher(engine)
	require.NoError(t, d.Dispatch(context.Background(), job))
	d.Wait()

	engine.AssertExpectations(t)
}

func TestInlineDispatcherOutlivesRequestContext(t *testing.T) {
	engine := &mockEvolver{}
	job := testJob()
	var runCtx context.Context
	engine.On("Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { runCtx = args.Get(0).(context.Context) }).
		Return("", nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	d := NewInlineDispatcher(engine)
	require.NoError(t, d.Dispatch(ctx, job))
	cancel()
	d.Wait()

	require.NotNil(t, runCtx)
	assert.NoError(t, runCtx.Err())
}

func TestQueueDispatcherEnqueuesEvolveTask(t *testing.T) {
	client := &mockEnqueuer{}
	job := testJob()
	var task *asynq.Task
	var opts []asynq.Option
	client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			task = args.Get(1).(*asynq.Task)
			opts = args.Get(2).([]asynq.Option)
		}).
		Return(&asynq.TaskInfo{ID: "task-1"}, nil).Once()

	d := NewQueueDispatcher(client, 30*time.Minute)
	require.NoError(t, d.Dispatch(context.Background(), job))

	require.NotNil(t, task)
	assert.Equal(t, TypeEvolve, task.Type())
	assert.Len(t, opts, 3)

	p, containerID, versionID, err := DecodeEvolvePayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, job.Target.Container.ID, containerID)
	assert.Equal(t, *job.Target.VersionID, versionID)
	assert.Equal(t, "alice", p.User)
	assert.True(t, p.Update)
	assert.Equal(t, job.Candidate, p.Candidate)
	client.AssertExpectations(t)
}

func TestQueueDispatcherReportsEnqueueFailure(t *testing.T) {
	client := &mockEnqueuer{}
	client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp: connection refused")).Once()

	err := NewQueueDispatcher(client, 0).Dispatch(context.Background(), testJob())
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}

func TestDecodeEvolvePayloadRejectsBadIDs(t *testing.T) {
	_, _, _, err := DecodeEvolvePayload([]byte(`{"container_id":"nope"}`))
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	id := uuid.New()
	_, containerID, _, err := DecodeEvolvePayload([]byte(`{"container_id":"` + id.String() + `"}`))
	require.Error(t, err)
	assert.Equal(t, id, containerID)
	assert.Contains(t, err.Error(), "carries no ontology")
}
