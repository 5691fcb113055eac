package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"genstudio/internal/domain"
	"genstudio/internal/gallery"
	"genstudio/internal/history"
	"genstudio/internal/infra"
	"genstudio/internal/provider"
	"genstudio/internal/provider/prompt"
	"genstudio/internal/queue"
	"genstudio/internal/settings"
	"genstudio/internal/storage"
)

// App carries the wired services into the HTTP handlers.
type App struct {
	Logger      *infra.Logger
	Registry    *provider.Registry
	Queue       *queue.Queue
	Coordinator *queue.Coordinator
	Gallery     *gallery.Service
	History     *history.Service
	Settings    *settings.Service
	Enhancers   map[string]prompt.Enhancer
	Files       *storage.FileStore

	// FailOnEmptyResult makes an image generation that yields zero outputs
	// an error instead of an empty success.
	FailOnEmptyResult bool
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"error": map[string]any{"message": message}})
}

// fail maps domain sentinel errors onto HTTP status codes.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMissingPrompt),
		errors.Is(err, domain.ErrUnsupportedModel),
		errors.Is(err, domain.ErrIllegalTransition):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMissingAPIKey):
		a.error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrUnsupportedOperation):
		a.error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrEmptyResult), errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, err.Error())
	default:
		a.error(w, http.StatusInternalServerError, err.Error())
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
