package history

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/store"
)

const maxEntries = 50

// Service keeps the user's recent prompts, most recent first. Re-recording a
// prompt (case-insensitive match) moves it to the front and bumps its usage
// count instead of duplicating it. The list is capped at 50 entries.
type Service struct {
	mu      sync.RWMutex
	entries []domain.PromptHistoryItem

	store  store.BlobStore
	logger *infra.Logger
	now    func() time.Time
}

type persistedHistory struct {
	Entries []domain.PromptHistoryItem `json:"entries"`
}

func NewService(blobs store.BlobStore, logger *infra.Logger) *Service {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Service{
		store:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// Record notes that a prompt was used for a generation.
func (s *Service) Record(ctx context.Context, prompt string, mode domain.GenerationMode, model, stylePreset string) (domain.PromptHistoryItem, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.PromptHistoryItem{}, domain.ErrMissingPrompt
	}

	s.mu.Lock()
	key := strings.ToLower(prompt)
	var entry domain.PromptHistoryItem
	found := false
	for i := range s.entries {
		if strings.ToLower(s.entries[i].Prompt) == key {
			entry = s.entries[i]
			entry.UsageCount++
			entry.Mode = mode
			entry.Model = model
			entry.StylePreset = stylePreset
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		entry = domain.PromptHistoryItem{
			ID:          uuid.NewString(),
			Prompt:      prompt,
			Mode:        mode,
			Model:       model,
			StylePreset: stylePreset,
			CreatedAt:   s.now().UTC(),
			UsageCount:  1,
		}
	}
	s.entries = append([]domain.PromptHistoryItem{entry}, s.entries...)
	if len(s.entries) > maxEntries {
		s.entries = s.entries[:maxEntries]
	}
	s.mu.Unlock()

	s.persist(ctx)
	return entry, nil
}

// List returns the history, most recent first. A non-empty search narrows
// by substring match on the prompt.
func (s *Service) List(search string) []domain.PromptHistoryItem {
	search = strings.ToLower(strings.TrimSpace(search))
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PromptHistoryItem, 0, len(s.entries))
	for _, entry := range s.entries {
		if search != "" && !strings.Contains(strings.ToLower(entry.Prompt), search) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Remove deletes a single history entry.
func (s *Service) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	removed := false
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.persist(ctx)
	}
	return removed
}

// Clear wipes the whole history.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	s.persist(ctx)
}

// Restore loads the persisted history snapshot.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	blob, err := s.store.Load(ctx, store.BlobPromptHistory)
	if err != nil {
		return err
	}
	if blob == nil {
		return nil
	}
	var state persistedHistory
	if err := json.Unmarshal(blob, &state); err != nil {
		s.logger.Warn().Err(err).Msg("history: discarding unreadable snapshot")
		return nil
	}
	s.mu.Lock()
	s.entries = state.Entries
	if len(s.entries) > maxEntries {
		s.entries = s.entries[:maxEntries]
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.mu.RLock()
	state := persistedHistory{Entries: make([]domain.PromptHistoryItem, len(s.entries))}
	copy(state.Entries, s.entries)
	s.mu.RUnlock()

	blob, err := json.Marshal(state)
	if err != nil {
		s.logger.Error().Err(err).Msg("history: marshal snapshot")
		return
	}
	if err := s.store.Save(ctx, store.BlobPromptHistory, blob); err != nil {
		s.logger.Warn().Err(err).Msg("history: persist snapshot")
	}
}
