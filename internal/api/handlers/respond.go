package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/api/middleware"
	"github.com/graphwarehouse/engine/internal/api/types"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/graphwarehouse/engine/pkg/logger"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, appErr.New(appErr.CodeInvalid, msg))
}

// decode reads a JSON body into the struct v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeJSON(w, r, v) && check(w, r, v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeErrorStr(w, r, "invalid json")
		return false
	}
	return true
}

func check(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := models.Validator().Struct(v); err != nil {
		writeErrorStr(w, r, err.Error())
		return false
	}
	return true
}

// pathID parses the named URL parameter as a uuid.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorStr(w, r, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseUUID parses an optional uuid body field. Empty means uuid.Nil.
func parseUUID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

// listOptions reads the filters shared by every list endpoint.
func listOptions(r *http.Request, containerID uuid.UUID) (storage.ListOptions, error) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		ContainerID:     containerID,
		Name:            q.Get("name"),
		IncludeArchived: q.Get("archived") == "true",
		SortBy:          q.Get("sort_by"),
		SortDesc:        q.Get("sort_desc") == "true",
	}
	if v := q.Get("ontology_version"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return opts, appErr.New(appErr.CodeInvalid, "invalid ontology_version")
		}
		opts.OntologyVersion = &id
	}
	opts.AnyVersion = q.Get("any_version") == "true"
	for key, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, appErr.Newf(appErr.CodeInvalid, "invalid %s", key)
			}
			*dst = n
		}
	}
	if opts.Limit == 0 || opts.Limit > 1000 {
		opts.Limit = 100
	}
	return opts, nil
}

func listMeta(opts storage.ListOptions, n int) *types.Meta {
	return &types.Meta{Limit: opts.Limit, Offset: opts.Offset, Total: int64(n)}
}

func user(r *http.Request) string { return middleware.GetUserID(r.Context()) }
