package tasks

import (
	"context"
	"time"

	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/ontology"
	"github.com/graphwarehouse/engine/internal/services"
	"github.com/graphwarehouse/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AbandonedCause is recorded on versions the sweep rolls back.
const AbandonedCause = "ontology import abandoned"

// sweepUser is recorded as the author of sweep alerts.
const sweepUser = "system"

type StaleVersions interface {
	Stale(ctx context.Context, olderThan time.Duration) ([]models.OntologyVersion, error)
}

// SweepTaskHandler rolls back ontology versions whose import never finished,
// e.g. because the worker running it died.
type SweepTaskHandler struct {
	versions   StaleVersions
	containers ContainerFinder
	engine     services.Evolver
	staleAfter time.Duration
}

func NewSweepTaskHandler(versions StaleVersions, containers ContainerFinder, engine services.Evolver, staleAfter time.Duration) *SweepTaskHandler {
	return &SweepTaskHandler{versions: versions, containers: containers, engine: engine, staleAfter: staleAfter}
}

// NewSweepTask returns the periodic ontology:sweep_generating task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(services.TypeSweepGenerating, nil)
}

func (h *SweepTaskHandler) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	stale, err := h.versions.Stale(ctx, h.staleAfter)
	if err != nil {
		logger.L().Error("list stale ontology versions failed", zap.Error(err))
		return err
	}

	for _, v := range stale {
		container, err := h.containers.FindByID(ctx, v.ContainerID)
		if err != nil {
			// Without the container the versioning flag is unknown; keep the
			// container id so the alert still lands.
			logger.L().Warn("get container of stale version failed",
				zap.String("version_id", v.ID.String()),
				zap.Error(err))
			container = models.Container{ID: v.ContainerID}
		}
		id := v.ID
		h.engine.Rollback(ctx, ontology.Target{Container: container, VersionID: &id}, sweepUser, AbandonedCause)
		logger.L().Info("abandoned ontology import rolled back",
			zap.String("version_id", v.ID.String()),
			zap.String("container_id", v.ContainerID.String()),
			zap.Time("started_at", v.UpdatedAt))
	}
	return nil
}
