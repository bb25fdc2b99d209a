package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/graphwarehouse/engine/internal/api/types"
)

func fail(w http.ResponseWriter, r *http.Request, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Error: &types.APIError{Code: code, Message: http.StatusText(status)},
		Meta:  &types.Meta{RequestID: GetRequestID(r.Context())},
	})
}
