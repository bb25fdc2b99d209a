package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/ontology"
	"github.com/graphwarehouse/engine/internal/services"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ContainerFinder loads the container a task refers to.
type ContainerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Container, error)
}

// EvolveTaskHandler runs ontology:evolve tasks.
type EvolveTaskHandler struct {
	engine     services.Evolver
	containers ContainerFinder
}

func NewEvolveTaskHandler(engine services.Evolver, containers ContainerFinder) *EvolveTaskHandler {
	return &EvolveTaskHandler{engine: engine, containers: containers}
}

func (h *EvolveTaskHandler) HandleEvolve(ctx context.Context, t *asynq.Task) error {
	p, containerID, versionID, err := services.DecodeEvolvePayload(t.Payload())
	target := ontology.Target{Container: models.Container{ID: containerID}}
	if versionID != uuid.Nil {
		target.VersionID = &versionID
	}
	if err != nil {
		logger.L().Error("invalid evolve task payload", zap.Error(err))
		h.engine.Rollback(ctx, target, p.User, err.Error())
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	logger.L().Info("handling evolve task",
		zap.String("container_id", containerID.String()),
		zap.String("version_id", versionID.String()),
		zap.Bool("update", p.Update))

	container, err := h.containers.FindByID(ctx, containerID)
	if err != nil {
		logger.L().Error("get container failed", zap.Error(err))
		h.engine.Rollback(ctx, target, p.User, err.Error())
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	target.Container = container

	if _, err := h.engine.Apply(ctx, p.Candidate, target, p.User, ontology.Options{Update: p.Update}); err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return nil
}
