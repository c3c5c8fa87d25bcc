package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeErrorFrom maps a domain error onto an HTTP status and writes it,
// carrying any hints attached with errors.WithHint.
func writeErrorFrom(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsInvalidRequestError(err):
		status = http.StatusBadRequest
	case errors.IsNotFoundError(err):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errUploadTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, errorBody{
		Error: err.Error(),
		Hint:  strings.Join(errors.GetAllHints(err), "; "),
	})
}

// requireMethod checks if the request method matches the expected method
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// extractPathParts extracts path segments after removing a prefix
func extractPathParts(urlPath, prefix string) []string {
	return strings.Split(strings.Trim(strings.TrimPrefix(urlPath, prefix), "/"), "/")
}
