package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/notify"
	"github.com/erazemk/irontrace/internal/store"
)

// LoansHandler handles the counter: checkouts and returns.
type LoansHandler struct {
	Store    db.Storage
	Notifier notify.Notifier
}

type checkoutRequest struct {
	WorkerID string               `json:"worker_id"`
	Items    []model.CheckoutItem `json:"items"`
}

type returnRequest struct {
	Entries []model.ReturnEntry `json:"entries"`
}

type returnProductRequest struct {
	ProductID string `json:"product_id"`
}

type returnResult struct {
	LoanID     int64  `json:"loan_id"`
	ReturnedID int64  `json:"returned_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Checkout handles POST /api/checkouts and responds with the issued ticket,
// or with just its id when the ticket cannot be read back.
func (h *LoansHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticketID, err := store.Checkout(r.Context(), h.Store, req.WorkerID, req.Items)
	if err != nil {
		storeError(w, "failed to check out", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("checkout created", "user", claims.Username, "ticket", ticketID, "worker", req.WorkerID, "items", len(req.Items))

	// The checkout is committed; from here on the client must get a 201
	// or it may retry and check the items out twice.
	ticket, err := store.GetTicket(r.Context(), h.Store, ticketID)
	if err != nil {
		slog.Error("failed to load ticket after checkout", "ticket", ticketID, "error", err)
		jsonResponse(w, http.StatusCreated, map[string]string{"ticket_id": ticketID})
		return
	}

	h.notify(r, ticket)
	jsonResponse(w, http.StatusCreated, ticket)
}

// notify sends the ticket to the worker's contact. Failures are logged
// only; the checkout has already been committed.
func (h *LoansHandler) notify(r *http.Request, ticket *model.Ticket) {
	if !ticket.Registered {
		return
	}
	worker, err := store.GetWorker(r.Context(), h.Store, ticket.WorkerID)
	if err != nil {
		slog.Warn("ticket notification skipped", "ticket", ticket.ID, "error", err)
		return
	}
	if worker.Contact == "" {
		return
	}
	if err := h.Notifier.TicketIssued(r.Context(), worker.Contact, ticket); err != nil {
		slog.Warn("ticket notification failed", "ticket", ticket.ID, "error", err)
	}
}

// Return handles POST /api/returns. Each entry gets its own result; the
// request fails as a whole only on a storage error.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := store.ReturnItems(r.Context(), h.Store, req.Entries)
	if err != nil {
		storeError(w, "failed to return items", err)
		return
	}

	resp := make([]returnResult, 0, len(results))
	returned := 0
	for _, res := range results {
		out := returnResult{LoanID: res.LoanID, ReturnedID: res.ReturnedID}
		if res.Err != nil {
			out.Error = res.Err.Error()
		} else {
			returned++
		}
		resp = append(resp, out)
	}

	claims := GetClaims(r.Context())
	slog.Info("items returned", "user", claims.Username, "entries", len(results), "returned", returned)
	jsonResponse(w, http.StatusOK, resp)
}

// ReturnProduct handles POST /api/returns/product: the latest active loan
// of the scanned product comes back in full.
func (h *LoansHandler) ReturnProduct(w http.ResponseWriter, r *http.Request) {
	var req returnProductRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		jsonError(w, http.StatusBadRequest, "product_id required")
		return
	}

	res, err := store.ReturnLatestForProduct(r.Context(), h.Store, req.ProductID)
	if err != nil {
		storeError(w, "failed to return product", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product returned", "user", claims.Username, "product", store.NormalizeProductID(req.ProductID), "loan", res.LoanID)
	jsonResponse(w, http.StatusOK, returnResult{LoanID: res.LoanID, ReturnedID: res.ReturnedID})
}
