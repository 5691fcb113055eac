package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"genstudio/internal/domain"
	"genstudio/internal/provider"
)

type enhanceRequest struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
}

type enhanceResponse struct {
	Prompt   string `json:"prompt"`
	Enhanced string `json:"enhanced_prompt"`
}

// EnhancePrompt rewrites a short prompt into a detailed one. The provider is
// chosen explicitly or inferred from the default model; enhancers fall back
// to a local rewrite when the upstream call cannot be made.
func (a *App) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.fail(w, domain.ErrMissingPrompt)
		return
	}

	name := req.Provider
	if name == "" {
		inferred, err := provider.NameFor(a.Settings.Current().DefaultModel)
		if err != nil {
			inferred = provider.NameXAI
		}
		name = inferred
	}
	enhancer, ok := a.Enhancers[name]
	if !ok {
		a.error(w, http.StatusBadRequest, "unknown enhancement provider")
		return
	}

	enhanced, err := enhancer.Enhance(r.Context(), req.Prompt)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, enhanceResponse{Prompt: req.Prompt, Enhanced: enhanced})
}

type historyListResponse struct {
	Items []domain.PromptHistoryItem `json:"items"`
}

// ListPromptHistory returns recent prompts, optionally substring-filtered.
func (a *App) ListPromptHistory(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, historyListResponse{Items: a.History.List(r.URL.Query().Get("search"))})
}

type recordPromptRequest struct {
	Prompt      string `json:"prompt"`
	Mode        string `json:"mode"`
	Model       string `json:"model"`
	StylePreset string `json:"style_preset"`
}

// RecordPrompt stores a prompt in history. Repeats bump the existing entry
// instead of duplicating it.
func (a *App) RecordPrompt(w http.ResponseWriter, r *http.Request) {
	var req recordPromptRequest
	if !a.decode(w, r, &req) {
		return
	}
	item, err := a.History.Record(r.Context(), req.Prompt, domain.GenerationMode(req.Mode), req.Model, req.StylePreset)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]domain.PromptHistoryItem{"item": item})
}

// RemovePrompt deletes one history entry.
func (a *App) RemovePrompt(w http.ResponseWriter, r *http.Request) {
	if !a.History.Remove(r.Context(), chi.URLParam(r, "itemID")) {
		a.fail(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPromptHistory deletes all history entries.
func (a *App) ClearPromptHistory(w http.ResponseWriter, r *http.Request) {
	a.History.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
