package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/api/types"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
)

type ContainerRepository interface {
	Create(ctx context.Context, c *models.Container, user string) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Container, error)
	List(ctx context.Context, opts storage.ListOptions) ([]models.Container, error)
	Archive(ctx context.Context, id uuid.UUID, user string) error
	Alerts(ctx context.Context, containerID uuid.UUID, unacknowledgedOnly bool) ([]models.ContainerAlert, error)
	AcknowledgeAlert(ctx context.Context, id uuid.UUID, user string) error
}

type VersionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.OntologyVersion, error)
	ListForContainer(ctx context.Context, containerID uuid.UUID) ([]models.OntologyVersion, error)
}

type ContainersHandler struct {
	containers ContainerRepository
	versions   VersionRepository
}

func NewContainersHandler(containers ContainerRepository, versions VersionRepository) *ContainersHandler {
	return &ContainersHandler{containers: containers, versions: versions}
}

func (h *ContainersHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r, uuid.Nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.containers.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: listMeta(opts, len(items))})
}

func (h *ContainersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ContainerCreateRequest
	if !decode(w, r, &req) {
		return
	}
	c := models.Container{
		Name:        req.Name,
		Description: req.Description,
		Config: models.ContainerConfig{
			OntologyVersioningEnabled: req.OntologyVersioningEnabled,
			DataVersioningEnabled:     req.DataVersioningEnabled,
		},
	}
	if err := h.containers.Create(r.Context(), &c, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *ContainersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	c, err := h.containers.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *ContainersHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	if err := h.containers.Archive(r.Context(), id, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Alerts lists the container's alerts, newest first. ?unacknowledged=true
// hides the ones already seen.
func (h *ContainersHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	alerts, err := h.containers.Alerts(r.Context(), id, r.URL.Query().Get("unacknowledged") == "true")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, alerts)
}

func (h *ContainersHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "alertID")
	if !ok {
		return
	}
	if err := h.containers.AcknowledgeAlert(r.Context(), id, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContainersHandler) Versions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	versions, err := h.versions.ListForContainer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, versions)
}

func (h *ContainersHandler) Version(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "versionID")
	if !ok {
		return
	}
	v, err := h.versions.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, v)
}
