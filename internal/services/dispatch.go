package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/ontology"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types handled by the worker.
const (
	TypeEvolve          = "ontology:evolve"
	TypeSweepGenerating = "ontology:sweep_generating"
)

// QueueOntology is the asynq queue evolution runs are enqueued on.
const QueueOntology = "ontology"

// Job is one evolution run handed to a Dispatcher.
type Job struct {
	Candidate *ontology.Candidate
	Target    ontology.Target
	User      string
	Options   ontology.Options
}

// Dispatcher runs jobs away from the caller. Dispatch returns once the job is
// handed off; a job that cannot be handed off is reported as an error and
// never runs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// InlineDispatcher runs each job on its own goroutine in this process.
type InlineDispatcher struct {
	engine Evolver
	wg     sync.WaitGroup
}

func NewInlineDispatcher(engine Evolver) *InlineDispatcher {
	return &InlineDispatcher{engine: engine}
}

var _ Dispatcher = (*InlineDispatcher)(nil)

// outcome is what a worker goroutine reports back.
type outcome struct {
	err     error
	crashed bool
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, job Job) error {
	ctx = context.WithoutCancel(ctx)
	done := make(chan outcome, 1)

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("ontology import worker panicked: %v", r), crashed: true}
			}
		}()
		_, err := d.engine.Apply(ctx, job.Candidate, job.Target, job.User, job.Options)
		done <- outcome{err: err}
	}()

	go func() {
		defer d.wg.Done()
		res := <-done
		switch {
		case res.crashed:
			logger.L().Error("ontology import worker crashed",
				zap.String("container_id", job.Target.Container.ID.String()),
				zap.Error(res.err))
			d.engine.Rollback(ctx, job.Target, job.User, res.err.Error())
		case res.err != nil:
			// Apply rolled the version back already.
			logger.L().Warn("ontology import finished with error",
				zap.String("container_id", job.Target.Container.ID.String()),
				zap.Error(res.err))
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has finished.
func (d *InlineDispatcher) Wait() { d.wg.Wait() }

// EvolvePayload is the task payload of an ontology:evolve task.
type EvolvePayload struct {
	Candidate   *ontology.Candidate `json:"candidate"`
	ContainerID string              `json:"container_id"`
	VersionID   string              `json:"version_id"`
	User        string              `json:"user"`
	Update      bool                `json:"update"`
}

// Enqueuer is the part of *asynq.Client a QueueDispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher hands jobs to the worker process through asynq. Runs are
// never retried; a failed run has already been rolled back by the worker.
type QueueDispatcher struct {
	client  Enqueuer
	timeout time.Duration
}

func NewQueueDispatcher(client Enqueuer, timeout time.Duration) *QueueDispatcher {
	return &QueueDispatcher{client: client, timeout: timeout}
}

var _ Dispatcher = (*QueueDispatcher)(nil)

func (d *QueueDispatcher) Dispatch(ctx context.Context, job Job) error {
	task, err := NewEvolveTask(job)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(QueueOntology), asynq.MaxRetry(0)}
	if d.timeout > 0 {
		opts = append(opts, asynq.Timeout(d.timeout))
	}
	info, err := d.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue ontology import failed")
	}
	logger.L().Info("ontology import enqueued",
		zap.String("task_id", info.ID),
		zap.String("container_id", job.Target.Container.ID.String()))
	return nil
}

// NewEvolveTask encodes job as an ontology:evolve task.
func NewEvolveTask(job Job) (*asynq.Task, error) {
	p := EvolvePayload{
		Candidate:   job.Candidate,
		ContainerID: job.Target.Container.ID.String(),
		User:        job.User,
		Update:      job.Options.Update,
	}
	if job.Target.VersionID != nil {
		p.VersionID = job.Target.VersionID.String()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode ontology import task failed")
	}
	return asynq.NewTask(TypeEvolve, b), nil
}

// DecodeEvolvePayload parses an ontology:evolve payload. The returned ids are
// uuid.Nil when absent.
func DecodeEvolvePayload(data []byte) (EvolvePayload, uuid.UUID, uuid.UUID, error) {
	var p EvolvePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, uuid.Nil, uuid.Nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid ontology import task payload")
	}
	containerID, err := uuid.Parse(p.ContainerID)
	if err != nil {
		return p, uuid.Nil, uuid.Nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid container id in ontology import task")
	}
	var versionID uuid.UUID
	if p.VersionID != "" {
		if versionID, err = uuid.Parse(p.VersionID); err != nil {
			return p, containerID, uuid.Nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid version id in ontology import task")
		}
	}
	if p.Candidate == nil {
		return p, containerID, versionID, appErr.New(appErr.CodeInvalid, "ontology import task carries no ontology")
	}
	return p, containerID, versionID, nil
}
