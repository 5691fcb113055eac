package settings

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/provider"
	"genstudio/internal/store"
)

// Update is a partial settings mutation. Nil fields stay as they are, which
// lets the API accept sparse patches without clobbering stored keys.
type Update struct {
	XAIAPIKey          *string `json:"xai_api_key"`
	GeminiAPIKey       *string `json:"gemini_api_key"`
	Theme              *string `json:"theme"`
	DefaultModel       *string `json:"default_model"`
	DefaultAspectRatio *string `json:"default_aspect_ratio"`
	AutoSaveToGallery  *bool   `json:"auto_save_to_gallery"`
	ShowSuggestions    *bool   `json:"show_prompt_suggestions"`
	HapticFeedback     *bool   `json:"haptic_feedback"`
}

// Service owns the user's preferences and provider keys, persisted as one
// blob. Reads are frequent (every provider call asks for a key), so the
// current value is kept in memory.
type Service struct {
	mu      sync.RWMutex
	current domain.Settings

	store  store.BlobStore
	logger *infra.Logger
}

func NewService(blobs store.BlobStore, logger *infra.Logger) *Service {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Service{
		current: domain.DefaultSettings(),
		store:   blobs,
		logger:  logger,
	}
}

// Current returns a copy of the active settings.
func (s *Service) Current() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply merges a partial update and persists the result.
func (s *Service) Apply(ctx context.Context, upd Update) domain.Settings {
	s.mu.Lock()
	if upd.XAIAPIKey != nil {
		s.current.XAIAPIKey = strings.TrimSpace(*upd.XAIAPIKey)
	}
	if upd.GeminiAPIKey != nil {
		s.current.GeminiAPIKey = strings.TrimSpace(*upd.GeminiAPIKey)
	}
	if upd.Theme != nil {
		s.current.Theme = *upd.Theme
	}
	if upd.DefaultModel != nil {
		s.current.DefaultModel = *upd.DefaultModel
	}
	if upd.DefaultAspectRatio != nil {
		s.current.DefaultAspectRatio = *upd.DefaultAspectRatio
	}
	if upd.AutoSaveToGallery != nil {
		s.current.AutoSaveToGallery = *upd.AutoSaveToGallery
	}
	if upd.ShowSuggestions != nil {
		s.current.ShowSuggestions = *upd.ShowSuggestions
	}
	if upd.HapticFeedback != nil {
		s.current.HapticFeedback = *upd.HapticFeedback
	}
	snapshot := s.current
	s.mu.Unlock()

	s.persist(ctx)
	return snapshot
}

// Reset restores the defaults, dropping stored API keys.
func (s *Service) Reset(ctx context.Context) domain.Settings {
	s.mu.Lock()
	s.current = domain.DefaultSettings()
	snapshot := s.current
	s.mu.Unlock()

	s.persist(ctx)
	return snapshot
}

// APIKeyFor returns the stored key for whichever provider serves the model.
func (s *Service) APIKeyFor(model string) (string, error) {
	name, err := provider.NameFor(model)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch name {
	case provider.NameXAI:
		return s.current.XAIAPIKey, nil
	case provider.NameGemini:
		return s.current.GeminiAPIKey, nil
	default:
		return "", domain.ErrUnsupportedModel
	}
}

// XAIKeySource exposes the xAI key as a provider.KeySource.
func (s *Service) XAIKeySource() provider.KeySource {
	return provider.KeyFunc(func(context.Context) (string, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.current.XAIAPIKey, nil
	})
}

// GeminiKeySource exposes the Gemini key as a provider.KeySource.
func (s *Service) GeminiKeySource() provider.KeySource {
	return provider.KeyFunc(func(context.Context) (string, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.current.GeminiAPIKey, nil
	})
}

// AutoSaveEnabled reports the gallery auto-save preference.
func (s *Service) AutoSaveEnabled(context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AutoSaveToGallery
}

// Restore loads persisted settings, keeping defaults when none exist.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	blob, err := s.store.Load(ctx, store.BlobSettings)
	if err != nil {
		return err
	}
	if blob == nil {
		return nil
	}
	var loaded domain.Settings
	if err := json.Unmarshal(blob, &loaded); err != nil {
		s.logger.Warn().Err(err).Msg("settings: discarding unreadable snapshot")
		return nil
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.mu.RLock()
	blob, err := json.Marshal(s.current)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("settings: marshal snapshot")
		return
	}
	if err := s.store.Save(ctx, store.BlobSettings, blob); err != nil {
		s.logger.Warn().Err(err).Msg("settings: persist snapshot")
	}
}
