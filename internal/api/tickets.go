package api

import (
	"net/http"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/store"
)

// TicketsHandler serves tickets for reprinting and return lookups.
type TicketsHandler struct {
	Store db.Storage
}

// Get handles GET /api/tickets/{id}.
func (h *TicketsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := store.GetTicket(r.Context(), h.Store, r.PathValue("id"))
	if err != nil {
		storeError(w, "failed to get ticket", err)
		return
	}
	jsonResponse(w, http.StatusOK, ticket)
}

// Active handles GET /api/tickets/{id}/active.
func (h *TicketsHandler) Active(w http.ResponseWriter, r *http.Request) {
	lines, err := store.GetActiveLoansForTicket(r.Context(), h.Store, r.PathValue("id"))
	if err != nil {
		storeError(w, "failed to get ticket loans", err)
		return
	}
	jsonResponse(w, http.StatusOK, lines)
}
