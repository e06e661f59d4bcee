package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeErrorStatus maps core errors to HTTP status codes.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrLoanNotActive),
		errors.Is(err, db.ErrConstraint),
		errors.Is(err, db.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidQuantity),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrNoItems):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUnknownWorker):
		return http.StatusUnprocessableEntity
	case errors.Is(err, db.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// storeError writes err as a JSON error. Server-side failures are logged
// and their details withheld from the client.
func storeError(w http.ResponseWriter, msg string, err error) {
	status := storeErrorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		jsonError(w, status, msg)
		return
	}
	jsonError(w, status, err.Error())
}
