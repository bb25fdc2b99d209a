package types

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// ImportResponse is the result of an ontology import. Explanation is only set
// for dry runs.
type ImportResponse struct {
	ContainerID string `json:"container_id,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// ValidationResponse carries a property payload after defaults and
// transformations were applied.
type ValidationResponse struct {
	Properties map[string]any `json:"properties"`
}
