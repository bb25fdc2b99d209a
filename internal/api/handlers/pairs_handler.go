package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/api/types"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
)

type PairRepository interface {
	Save(ctx context.Context, p *models.MetatypeRelationshipPair, user string) error
	FindByID(ctx context.Context, id uuid.UUID) (models.MetatypeRelationshipPair, error)
	List(ctx context.Context, opts storage.ListOptions) ([]models.MetatypeRelationshipPair, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID, user string) error
	Unarchive(ctx context.Context, id uuid.UUID, user string) error
}

type PairsHandler struct {
	repo PairRepository
}

func NewPairsHandler(repo PairRepository) *PairsHandler {
	return &PairsHandler{repo: repo}
}

func (h *PairsHandler) List(w http.ResponseWriter, r *http.Request) {
	containerID, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	opts, err := listOptions(r, containerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.repo.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: listMeta(opts, len(items))})
}

func (h *PairsHandler) Create(w http.ResponseWriter, r *http.Request) {
	containerID, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	var req types.PairRequest
	if !decode(w, r, &req) {
		return
	}
	p := pairFrom(req)
	p.ContainerID = containerID
	if p.RelationshipType == "" {
		p.RelationshipType = models.ManyToMany
	}
	if err := h.repo.Save(r.Context(), &p, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *PairsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Update is a partial merge; empty fields keep their stored values.
func (h *PairsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.PairRequest
	if !decode(w, r, &req) {
		return
	}
	p := pairFrom(req)
	p.ID = id
	if err := h.repo.Save(r.Context(), &p, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Delete removes a pair permanently, or archives it with ?archive=true.
func (h *PairsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var err error
	if r.URL.Query().Get("archive") == "true" {
		err = h.repo.Archive(r.Context(), id, user(r))
	} else {
		err = h.repo.Delete(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PairsHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.repo.Unarchive(r.Context(), id, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pairFrom(req types.PairRequest) models.MetatypeRelationshipPair {
	return models.MetatypeRelationshipPair{
		Name:                  req.Name,
		Description:           req.Description,
		OriginMetatypeID:      parseUUID(req.OriginMetatypeID),
		DestinationMetatypeID: parseUUID(req.DestinationMetatypeID),
		RelationshipID:        parseUUID(req.RelationshipID),
		RelationshipType:      models.RelationshipType(req.RelationshipType),
	}
}
