package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/ontology"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/graphwarehouse/engine/pkg/logger"
	"go.uber.org/zap"
)

// ImportService is the entry point for loading a candidate ontology into a
// container.
type ImportService interface {
	// Import returns the explanation of the run for a dry run and the
	// container id otherwise. A non dry run only starts the evolution; its
	// outcome lands on the ontology version and the container alerts.
	Import(ctx context.Context, user string, c *ontology.Candidate, opts ImportOptions) (string, error)
}

type ImportOptions struct {
	// ContainerID is required for updates and ignored when a container is
	// created.
	ContainerID uuid.UUID
	Name        string
	Description string
	DryRun      bool
	Update      bool

	// Versioning flags of a newly created container.
	OntologyVersioning bool
	DataVersioning     bool
}

// Evolver applies candidates and rolls failed runs back.
type Evolver interface {
	Apply(ctx context.Context, c *ontology.Candidate, t ontology.Target, user string, opts ontology.Options) (string, error)
	Rollback(ctx context.Context, t ontology.Target, user, cause string)
}

type Containers interface {
	Create(ctx context.Context, c *models.Container, user string) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Container, error)
}

type Versions interface {
	Create(ctx context.Context, v *models.OntologyVersion, user string) error
	Preferred(ctx context.Context, containerID uuid.UUID) (models.OntologyVersion, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.VersionStatus, message string) error
}

type importService struct {
	engine     Evolver
	containers Containers
	versions   Versions
	dispatcher Dispatcher
}

func NewImportService(engine Evolver, containers Containers, versions Versions, dispatcher Dispatcher) ImportService {
	return &importService{engine: engine, containers: containers, versions: versions, dispatcher: dispatcher}
}

var _ ImportService = (*importService)(nil)

func (s *importService) Import(ctx context.Context, user string, c *ontology.Candidate, opts ImportOptions) (string, error) {
	if c == nil {
		return "", appErr.New(appErr.CodeInvalid, "ontology document is required")
	}
	if opts.Update && opts.ContainerID == uuid.Nil {
		return "", appErr.New(appErr.CodeInvalid, "container id is required to update an ontology")
	}
	evolve := ontology.Options{DryRun: opts.DryRun, Update: opts.Update}

	if opts.DryRun {
		target := ontology.Target{Container: models.Container{Name: opts.Name}}
		if opts.Update {
			container, err := s.containers.FindByID(ctx, opts.ContainerID)
			if err != nil {
				return "", err
			}
			target.Container = container
		}
		return s.engine.Apply(ctx, c, target, user, evolve)
	}

	container, err := s.container(ctx, user, opts)
	if err != nil {
		return "", err
	}
	version, err := s.version(ctx, user, container, c, opts)
	if err != nil {
		return "", err
	}

	job := Job{
		Candidate: c,
		Target:    ontology.Target{Container: container, VersionID: &version.ID},
		User:      user,
		Options:   evolve,
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		logger.L().Error("dispatch ontology import failed",
			zap.String("container_id", container.ID.String()),
			zap.String("version_id", version.ID.String()),
			zap.Error(err))
		s.engine.Rollback(ctx, job.Target, user, err.Error())
		return "", err
	}

	logger.L().Info("ontology import dispatched",
		zap.String("container_id", container.ID.String()),
		zap.String("version_id", version.ID.String()),
		zap.Bool("update", opts.Update))
	return container.ID.String(), nil
}

// container creates the container of a first import and loads it for an
// update.
func (s *importService) container(ctx context.Context, user string, opts ImportOptions) (models.Container, error) {
	if opts.Update {
		return s.containers.FindByID(ctx, opts.ContainerID)
	}
	container := models.Container{
		Name:        opts.Name,
		Description: opts.Description,
		Config: models.ContainerConfig{
			OntologyVersioningEnabled: opts.OntologyVersioning,
			DataVersioningEnabled:     opts.DataVersioning,
		},
	}
	if err := s.containers.Create(ctx, &container, user); err != nil {
		return models.Container{}, err
	}
	return container, nil
}

// version picks the ontology version whose status tracks the run. A
// versioned update gets a fresh version; every other run reuses the
// container's preferred version, or creates the first one.
func (s *importService) version(ctx context.Context, user string, container models.Container, c *ontology.Candidate, opts ImportOptions) (models.OntologyVersion, error) {
	if !(container.Config.OntologyVersioningEnabled && opts.Update) {
		v, err := s.versions.Preferred(ctx, container.ID)
		switch {
		case err == nil:
			if err := s.versions.SetStatus(ctx, v.ID, models.VersionGenerating, ""); err != nil {
				return models.OntologyVersion{}, err
			}
			v.Status = models.VersionGenerating
			return v, nil
		case !appErr.IsCode(err, appErr.CodeNotFound):
			return models.OntologyVersion{}, err
		}
	}

	v := models.OntologyVersion{
		ContainerID: container.ID,
		Name:        versionName(c, opts),
		Description: c.Description,
		Status:      models.VersionGenerating,
	}
	if err := s.versions.Create(ctx, &v, user); err != nil {
		return models.OntologyVersion{}, err
	}
	return v, nil
}

func versionName(c *ontology.Candidate, opts ImportOptions) string {
	name := opts.Name
	if name == "" {
		name = c.Name
	}
	return fmt.Sprintf("%s %s", name, time.Now().UTC().Format(time.RFC3339))
}
