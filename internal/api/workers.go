package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/store"
)

// WorkersHandler handles worker directory endpoints.
type WorkersHandler struct {
	Store db.Storage
}

// List handles GET /api/workers.
func (h *WorkersHandler) List(w http.ResponseWriter, r *http.Request) {
	workers, err := store.ListWorkers(r.Context(), h.Store)
	if err != nil {
		storeError(w, "failed to list workers", err)
		return
	}
	if workers == nil {
		workers = []model.Worker{}
	}
	jsonResponse(w, http.StatusOK, workers)
}

// Save handles POST /api/workers. An existing worker is updated in place.
func (h *WorkersHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req model.Worker
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	worker, err := store.SaveWorker(r.Context(), h.Store, req)
	if err != nil {
		storeError(w, "failed to save worker", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("worker saved", "user", claims.Username, "worker", worker.ID)
	jsonResponse(w, http.StatusOK, worker)
}

// Get handles GET /api/workers/{id}.
func (h *WorkersHandler) Get(w http.ResponseWriter, r *http.Request) {
	worker, err := store.GetWorker(r.Context(), h.Store, r.PathValue("id"))
	if err != nil {
		storeError(w, "failed to get worker", err)
		return
	}
	jsonResponse(w, http.StatusOK, worker)
}

// Loans handles GET /api/workers/{id}/loans. Workers that were never
// registered can still hold loans, so an unknown id yields an empty list.
func (h *WorkersHandler) Loans(w http.ResponseWriter, r *http.Request) {
	lines, err := store.GetActiveLoansForWorker(r.Context(), h.Store, r.PathValue("id"))
	if err != nil {
		storeError(w, "failed to list worker loans", err)
		return
	}
	jsonResponse(w, http.StatusOK, lines)
}
