package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/store"
)

// SettingsHandler handles the ticket settings.
type SettingsHandler struct {
	Store db.Storage
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := store.GetSettings(r.Context(), h.Store)
	if err != nil {
		storeError(w, "failed to get settings", err)
		return
	}
	jsonResponse(w, http.StatusOK, settings)
}

// Update handles PUT /api/settings. Every field is replaced.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.Settings
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateSettings(r.Context(), h.Store, req); err != nil {
		storeError(w, "failed to update settings", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("settings updated", "user", claims.Username)
	h.Get(w, r)
}
