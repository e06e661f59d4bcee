package api

import (
	"net/http"
	"time"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/store"
)

// ReportsHandler serves the supervisor reports.
type ReportsHandler struct {
	Store db.Storage

	// Location sets the day boundary of the summary. Defaults to local time.
	Location *time.Location
}

// parseSince accepts an RFC 3339 timestamp or a plain date.
func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, v, time.Local)
}

// Movements handles GET /api/reports/movements?q=&status=&since=&limit=.
func (h *ReportsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := queryLimit(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	f := store.MovementFilter{Search: q.Get("q"), Status: q.Get("status"), Limit: limit}
	if v := q.Get("since"); v != "" {
		since, err := parseSince(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid since")
			return
		}
		f.Since = since
	}

	report, err := store.ListMovements(r.Context(), h.Store, f)
	if err != nil {
		storeError(w, "failed to list movements", err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Summary handles GET /api/reports/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := store.GetSummary(r.Context(), h.Store, time.Now(), h.Location)
	if err != nil {
		storeError(w, "failed to build summary", err)
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}

// Audit handles GET /api/reports/audit.
func (h *ReportsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	entries, err := store.ListAudit(r.Context(), h.Store, limit)
	if err != nil {
		storeError(w, "failed to list audit log", err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// WriteOffs handles GET /api/reports/writeoffs.
func (h *ReportsHandler) WriteOffs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	writeOffs, err := store.ListWriteOffs(r.Context(), h.Store, limit)
	if err != nil {
		storeError(w, "failed to list write-offs", err)
		return
	}
	if writeOffs == nil {
		writeOffs = []model.WriteOff{}
	}
	jsonResponse(w, http.StatusOK, writeOffs)
}
