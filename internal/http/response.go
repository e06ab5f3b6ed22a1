package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"datainsight/internal/core"
	"datainsight/internal/log"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{Success: true, Data: data})
}

// respondList never encodes a nil slice as null.
func respondList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items, Count: &n})
}

// respondError maps err onto a status code and logs server-side failures.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorData(w, r, err, nil)
}

// respondErrorData is respondError with a payload describing what did succeed.
func respondErrorData(w http.ResponseWriter, r *http.Request, err error, data any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"path", r.URL.Path, "status_code", status, "error", err)
	}
	writeJSON(w, status, APIResponse{Success: false, Data: data, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrClientNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
