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

type RelationshipRepository interface {
	Save(ctx context.Context, rel *models.MetatypeRelationship, user string) error
	FindByID(ctx context.Context, id uuid.UUID, load repository.Load) (models.MetatypeRelationship, error)
	List(ctx context.Context, opts storage.ListOptions) ([]models.MetatypeRelationship, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID, user string) error
	Unarchive(ctx context.Context, id uuid.UUID, user string) error
}

type RelationshipsHandler struct {
	repo RelationshipRepository
}

func NewRelationshipsHandler(repo RelationshipRepository) *RelationshipsHandler {
	return &RelationshipsHandler{repo: repo}
}

func (h *RelationshipsHandler) List(w http.ResponseWriter, r *http.Request) {
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

func (h *RelationshipsHandler) Create(w http.ResponseWriter, r *http.Request) {
	containerID, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	var req types.RelationshipRequest
	if !decode(w, r, &req) {
		return
	}
	rel := models.MetatypeRelationship{
		ContainerID: containerID,
		Name:        req.Name,
		Description: req.Description,
		Keys:        relationshipKeys(uuid.Nil, containerID, req.Keys),
	}
	if err := h.repo.Save(r.Context(), &rel, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, rel)
}

func (h *RelationshipsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rel, err := h.repo.FindByID(r.Context(), id, repository.Nested)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rel)
}

// Update merges the request into the stored relationship. A non-nil key list
// replaces the key set; stored keys missing from it are removed.
func (h *RelationshipsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.RelationshipRequest
	if !decode(w, r, &req) {
		return
	}
	rel, err := h.repo.FindByID(r.Context(), id, repository.Nested)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name != "" {
		rel.Name = req.Name
	}
	if req.Description != "" {
		rel.Description = req.Description
	}
	if req.Keys != nil {
		keys := relationshipKeys(rel.ID, rel.ContainerID, req.Keys)
		var dropped []uuid.UUID
		for _, old := range rel.Keys {
			kept := false
			for i := range keys {
				if keys[i].Name == old.Name {
					keys[i].ID = old.ID
					kept = true
				}
			}
			if !kept {
				dropped = append(dropped, old.ID)
			}
		}
		rel.RemoveKey(dropped...)
		rel.Keys = keys
	}
	if err := h.repo.Save(r.Context(), &rel, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rel)
}

// Delete removes a relationship permanently, or archives it with
// ?archive=true.
func (h *RelationshipsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *RelationshipsHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
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

func relationshipKeys(relationshipID, containerID uuid.UUID, defs []models.KeyDefinition) []models.MetatypeRelationshipKey {
	keys := make([]models.MetatypeRelationshipKey, 0, len(defs))
	for _, d := range defs {
		if d.PropertyName == "" {
			d.PropertyName = models.ToPropertyName(d.Name)
		}
		keys = append(keys, models.MetatypeRelationshipKey{
			MetatypeRelationshipID: relationshipID,
			ContainerID:            containerID,
			KeyDefinition:          d,
		})
	}
	return keys
}

type RelationshipKeyRepository interface {
	BulkSave(ctx context.Context, keys []models.MetatypeRelationshipKey, user string) error
	DeleteMany(ctx context.Context, keys []models.MetatypeRelationshipKey) error
	ListFor(ctx context.Context, relationshipIDs ...uuid.UUID) (map[uuid.UUID][]models.MetatypeRelationshipKey, error)
}

// RelationshipKeysHandler edits the keys of one relationship without
// resending the relationship itself.
type RelationshipKeysHandler struct {
	rels RelationshipRepository
	keys RelationshipKeyRepository
}

func NewRelationshipKeysHandler(rels RelationshipRepository, keys RelationshipKeyRepository) *RelationshipKeysHandler {
	return &RelationshipKeysHandler{rels: rels, keys: keys}
}

func (h *RelationshipKeysHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	keys, err := h.keys.ListFor(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := keys[id]
	if out == nil {
		out = []models.MetatypeRelationshipKey{}
	}
	writeData(w, http.StatusOK, out)
}

// Save adds keys to the relationship; keys named like existing ones update
// them.
func (h *RelationshipKeysHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var defs []models.KeyDefinition
	if !decodeJSON(w, r, &defs) {
		return
	}
	rel, err := h.rels.FindByID(r.Context(), id, repository.Nested)
	if err != nil {
		writeError(w, r, err)
		return
	}
	keys := relationshipKeys(rel.ID, rel.ContainerID, defs)
	for i := range keys {
		for _, old := range rel.Keys {
			if old.Name == keys[i].Name {
				keys[i].ID = old.ID
			}
		}
	}
	if err := h.keys.BulkSave(r.Context(), keys, user(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, keys)
}

func (h *RelationshipKeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	keyID, ok := pathID(w, r, "keyID")
	if !ok {
		return
	}
	if err := h.keys.DeleteMany(r.Context(), []models.MetatypeRelationshipKey{{ID: keyID, MetatypeRelationshipID: id}}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
