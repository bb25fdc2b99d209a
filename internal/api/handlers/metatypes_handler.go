package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/api/types"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/repository"
	"github.com/graphwarehouse/engine/internal/storage"
)

type MetatypeRepository interface {
	Save(ctx context.Context, m *models.Metatype, user string) error
	BulkSave(ctx context.Context, ms []models.Metatype, user string) error
	FindByID(ctx context.Context, id uuid.UUID, load repository.Load) (models.Metatype, error)
	List(ctx context.Context, opts storage.ListOptions) ([]models.Metatype, error)
	ResolvedKeys(ctx context.Context, id uuid.UUID) ([]models.MetatypeKey, error)
	ResolvedPairs(ctx context.Context, id uuid.UUID) ([]models.MetatypeRelationshipPair, error)
	Ancestors(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	ValidateProperties(ctx context.Context, id uuid.UUID, payload map[string]any) (map[string]any, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID, user string) error
	Unarchive(ctx context.Context, id uuid.UUID, user string) error
}

type MetatypesHandler struct {
	repo MetatypeRepository
}

func NewMetatypesHandler(repo MetatypeRepository) *MetatypesHandler {
	return &MetatypesHandler{repo: repo}
}

func (h *MetatypesHandler) List(w http.ResponseWriter, r *http.Request) {
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

func (h *MetatypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	containerID, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	var req types.MetatypeRequest
	if !decode(w, r, &req) {
		return
	}
	m := newMetatype(containerID, req)
	if err := h.repo.Save(r.Context(), &m, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

func (h *MetatypesHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	containerID, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	var req []types.MetatypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ms := make([]models.Metatype, 0, len(req))
	for i := range req {
		if !check(w, r, &req[i]) {
			return
		}
		ms = append(ms, newMetatype(containerID, req[i]))
	}
	if err := h.repo.BulkSave(r.Context(), ms, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, ms)
}

// Get loads a metatype with its own keys and pairs. ?from_view=true reads the
// inherited keys and pairs as well.
func (h *MetatypesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	load := repository.Nested
	if r.URL.Query().Get("from_view") == "true" {
		load = repository.NestedFromView
	}
	m, err := h.repo.FindByID(r.Context(), id, load)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (h *MetatypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.MetatypeRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.repo.FindByID(r.Context(), id, repository.Nested)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name != "" {
		m.Name = req.Name
	}
	if req.Description != "" {
		m.Description = req.Description
	}
	if req.ParentID != nil {
		if *req.ParentID == "" {
			m.DetachParent()
		} else {
			m.SetParent(parseUUID(*req.ParentID))
		}
	}
	if req.Keys != nil {
		keys := metatypeKeys(m.ID, m.ContainerID, req.Keys)
		for i := range keys {
			for _, old := range m.Keys {
				if old.Name == keys[i].Name {
					keys[i].ID = old.ID
				}
			}
		}
		m.ReplaceKeys(keys)
	}
	if err := h.repo.Save(r.Context(), &m, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// Delete removes a metatype permanently, or archives it with ?archive=true.
func (h *MetatypesHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *MetatypesHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
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

// Keys returns own and inherited keys.
func (h *MetatypesHandler) Keys(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	keys, err := h.repo.ResolvedKeys(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, keys)
}

// Pairs returns own and inherited relationship pairs.
func (h *MetatypesHandler) Pairs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pairs, err := h.repo.ResolvedPairs(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pairs)
}

func (h *MetatypesHandler) Ancestors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ids, err := h.repo.Ancestors(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ids)
}

// ValidateProperties checks a node payload against the metatype's keys and
// returns it with defaults applied.
func (h *MetatypesHandler) ValidateProperties(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.ValidatePropertiesRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.repo.ValidateProperties(r.Context(), id, req.Properties)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, types.ValidationResponse{Properties: out})
}

func newMetatype(containerID uuid.UUID, req types.MetatypeRequest) models.Metatype {
	m := models.Metatype{ContainerID: containerID, Name: req.Name, Description: req.Description}
	if req.ParentID != nil && *req.ParentID != "" {
		m.SetParent(parseUUID(*req.ParentID))
	}
	m.AddKey(metatypeKeys(uuid.Nil, containerID, req.Keys)...)
	return m
}

func metatypeKeys(metatypeID, containerID uuid.UUID, defs []models.KeyDefinition) []models.MetatypeKey {
	keys := make([]models.MetatypeKey, 0, len(defs))
	for _, d := range defs {
		if d.PropertyName == "" {
			d.PropertyName = models.ToPropertyName(d.Name)
		}
		keys = append(keys, models.MetatypeKey{MetatypeID: metatypeID, ContainerID: containerID, KeyDefinition: d})
	}
	return keys
}
