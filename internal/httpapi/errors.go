package httpapi

import (
	"encoding/json"
	"net/http"

	"modelrepo/internal/manager"
	"modelrepo/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeMappedError maps a manager error to its HTTP status code.
func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case manager.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, err.Error())
	case manager.IsInvalidArgument(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case manager.IsUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
