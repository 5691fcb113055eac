package handlers

import (
	"net/http"

	"genstudio/internal/domain"
	"genstudio/internal/settings"
)

type settingsResponse struct {
	Settings domain.Settings `json:"settings"`
}

// GetSettings returns the active preferences, stored API keys included. This
// service fronts a single user's own device; the keys are theirs.
func (a *App) GetSettings(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, settingsResponse{Settings: a.Settings.Current()})
}

// UpdateSettings merges a sparse patch into the stored settings.
func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd settings.Update
	if !a.decode(w, r, &upd) {
		return
	}
	a.json(w, http.StatusOK, settingsResponse{Settings: a.Settings.Apply(r.Context(), upd)})
}

// ResetSettings restores defaults and drops stored API keys.
func (a *App) ResetSettings(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, settingsResponse{Settings: a.Settings.Reset(r.Context())})
}
