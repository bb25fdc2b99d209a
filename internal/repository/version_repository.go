package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// VersionRepository tracks ontology versions and their lifecycle.
type VersionRepository struct {
	versions VersionStore
}

func NewVersionRepository(versions VersionStore) *VersionRepository {
	return &VersionRepository{versions: versions}
}

// Create stores a new version. An empty status defaults to generating.
func (r *VersionRepository) Create(ctx context.Context, v *models.OntologyVersion, user string) error {
	if v.Status == "" {
		v.Status = models.VersionGenerating
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return r.versions.Create(ctx, nil, user, v)
}

func (r *VersionRepository) FindByID(ctx context.Context, id uuid.UUID) (models.OntologyVersion, error) {
	return r.versions.Retrieve(ctx, nil, id)
}

func (r *VersionRepository) ListForContainer(ctx context.Context, containerID uuid.UUID) ([]models.OntologyVersion, error) {
	return r.versions.ListForContainer(ctx, nil, containerID)
}

// SetStatus moves a version through its lifecycle. message is recorded only
// for the error status.
func (r *VersionRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.VersionStatus, message string) error {
	return r.versions.SetStatus(ctx, nil, id, status, message)
}

// Preferred returns the version an in-place update should reuse: the newest
// published one, else ready, else errored. It fails with not_found when the
// container has none of those.
func (r *VersionRepository) Preferred(ctx context.Context, containerID uuid.UUID) (models.OntologyVersion, error) {
	for _, status := range models.VersionPreference {
		v, err := r.versions.LatestByStatus(ctx, nil, containerID, status)
		if err == nil {
			return v, nil
		}
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return v, err
		}
	}
	return models.OntologyVersion{}, appErr.Newf(appErr.CodeNotFound, "container %s has no ontology version", containerID)
}

// Stale returns versions still generating after olderThan.
func (r *VersionRepository) Stale(ctx context.Context, olderThan time.Duration) ([]models.OntologyVersion, error) {
	return r.versions.ListStale(ctx, nil, models.VersionGenerating, time.Now().Add(-olderThan))
}

// ContainerRepository manages containers and their alerts.
type ContainerRepository struct {
	containers ContainerStore
	alerts     AlertStore
}

func NewContainerRepository(containers ContainerStore, alerts AlertStore) *ContainerRepository {
	return &ContainerRepository{containers: containers, alerts: alerts}
}

func (r *ContainerRepository) Create(ctx context.Context, c *models.Container, user string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.containers.Create(ctx, nil, user, c)
}

func (r *ContainerRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Container, error) {
	return r.containers.Retrieve(ctx, nil, id)
}

func (r *ContainerRepository) List(ctx context.Context, opts storage.ListOptions) ([]models.Container, error) {
	return r.containers.List(ctx, nil, opts)
}

func (r *ContainerRepository) Archive(ctx context.Context, id uuid.UUID, user string) error {
	return r.containers.Archive(ctx, nil, user, id)
}

// Alert posts a durable notice on a container.
func (r *ContainerRepository) Alert(ctx context.Context, containerID uuid.UUID, kind models.AlertType, message, user string) error {
	a := models.ContainerAlert{ContainerID: containerID, Type: kind, Message: message}
	if err := a.Validate(); err != nil {
		return err
	}
	return r.alerts.Create(ctx, nil, user, &a)
}

func (r *ContainerRepository) Alerts(ctx context.Context, containerID uuid.UUID, unacknowledgedOnly bool) ([]models.ContainerAlert, error) {
	return r.alerts.ListForContainer(ctx, nil, containerID, unacknowledgedOnly)
}

func (r *ContainerRepository) AcknowledgeAlert(ctx context.Context, id uuid.UUID, user string) error {
	return r.alerts.Acknowledge(ctx, nil, user, id)
}
