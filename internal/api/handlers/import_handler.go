package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/api/types"
	"github.com/graphwarehouse/engine/internal/ontology"
	"github.com/graphwarehouse/engine/internal/services"
)

// maxOntologyBytes bounds an uploaded ontology document.
const maxOntologyBytes = 32 << 20

type ImportHandler struct {
	svc services.ImportService
}

func NewImportHandler(svc services.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// Create imports an ontology into a new container. The container takes
// ?name= or, when absent, the ontology's name.
func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, uuid.Nil, false)
}

// Update evolves the ontology of an existing container.
func (h *ImportHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "containerID")
	if !ok {
		return
	}
	h.serve(w, r, id, true)
}

func (h *ImportHandler) serve(w http.ResponseWriter, r *http.Request, containerID uuid.UUID, update bool) {
	q := r.URL.Query()
	opts := services.ImportOptions{
		ContainerID:        containerID,
		Name:               q.Get("name"),
		Description:        q.Get("description"),
		DryRun:             q.Get("dryrun") == "true",
		Update:             update,
		OntologyVersioning: q.Get("ontology_versioning") == "true",
		DataVersioning:     q.Get("data_versioning") == "true",
	}
	candidate, err := ontology.Read(http.MaxBytesReader(w, r.Body, maxOntologyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorStr(w, r, "ontology document too large")
			return
		}
		writeError(w, r, err)
		return
	}
	if opts.Name == "" {
		opts.Name = candidate.Name
	}

	out, err := h.svc.Import(r.Context(), user(r), candidate, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if opts.DryRun {
		writeData(w, http.StatusOK, types.ImportResponse{ContainerID: containerIDOrEmpty(containerID), Explanation: out})
		return
	}
	writeData(w, http.StatusAccepted, types.ImportResponse{ContainerID: out})
}

func containerIDOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
