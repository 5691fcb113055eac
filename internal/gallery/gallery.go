package gallery

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/store"
)

// AutoSavePolicy reports whether finished images should be promoted to the
// gallery automatically. Videos are always promoted.
type AutoSavePolicy func(ctx context.Context) bool

// Filter narrows and orders gallery listings.
type Filter struct {
	Kind          domain.MediaKind
	Model         string
	Search        string
	FavoritesOnly bool
	SortBy        string // date | type | model
	SortDir       string // asc | desc
}

// Service is the destination for finished generations. Session results live
// only in memory for the current run; gallery items persist in the blob
// store with favorite and tag metadata.
type Service struct {
	mu      sync.RWMutex
	session []domain.GeneratedMedia
	items   []domain.GalleryItem

	store    store.BlobStore
	logger   *infra.Logger
	autoSave AutoSavePolicy
}

type persistedGallery struct {
	Items []domain.GalleryItem `json:"items"`
}

func NewService(blobs store.BlobStore, autoSave AutoSavePolicy, logger *infra.Logger) *Service {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Service{
		store:    blobs,
		logger:   logger,
		autoSave: autoSave,
	}
}

// Publish records a finished generation in the session results and, when the
// auto-save policy applies, promotes it to the gallery as well.
func (s *Service) Publish(ctx context.Context, media domain.GeneratedMedia) error {
	s.mu.Lock()
	s.session = append([]domain.GeneratedMedia{media}, s.session...)
	s.mu.Unlock()

	save := media.Kind == domain.MediaKindVideo
	if !save && s.autoSave != nil {
		save = s.autoSave(ctx)
	}
	if !save {
		return nil
	}
	_, err := s.SaveToGallery(ctx, media)
	return err
}

// Results returns the session results, newest first.
func (s *Service) Results() []domain.GeneratedMedia {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GeneratedMedia, len(s.session))
	copy(out, s.session)
	return out
}

// ClearResults drops the session results. Gallery items are unaffected.
func (s *Service) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// SaveToGallery promotes a result into the persistent gallery. Saving the
// same id twice updates the stored media but keeps favorite and tags.
func (s *Service) SaveToGallery(ctx context.Context, media domain.GeneratedMedia) (domain.GalleryItem, error) {
	s.mu.Lock()
	var item domain.GalleryItem
	found := false
	for i := range s.items {
		if s.items[i].ID == media.ID {
			s.items[i].GeneratedMedia = media
			item = s.items[i]
			found = true
			break
		}
	}
	if !found {
		item = domain.GalleryItem{
			GeneratedMedia: media,
			Favorite:       false,
			Tags:           []string{},
		}
		s.items = append([]domain.GalleryItem{item}, s.items...)
	}
	s.mu.Unlock()

	s.persist(ctx)
	return item, nil
}

// Items lists gallery entries matching the filter.
func (s *Service) Items(filter Filter) []domain.GalleryItem {
	s.mu.RLock()
	matched := make([]domain.GalleryItem, 0, len(s.items))
	for _, item := range s.items {
		if matches(item, filter) {
			matched = append(matched, item)
		}
	}
	s.mu.RUnlock()

	sortItems(matched, filter.SortBy, filter.SortDir)
	return matched
}

// Get returns the gallery item with the given id.
func (s *Service) Get(id string) (domain.GalleryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.GalleryItem{}, false
}

// Remove deletes a gallery item.
func (s *Service) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	removed := false
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
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

// RemoveMany deletes all listed items and reports how many were present.
func (s *Service) RemoveMany(ctx context.Context, ids []string) int {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	s.mu.Lock()
	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if _, ok := wanted[item.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	s.mu.Unlock()
	if removed > 0 {
		s.persist(ctx)
	}
	return removed
}

// ToggleFavorite flips the favorite flag and returns the updated item.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (domain.GalleryItem, error) {
	s.mu.Lock()
	var item domain.GalleryItem
	found := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Favorite = !s.items[i].Favorite
			item = s.items[i]
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return domain.GalleryItem{}, domain.ErrNotFound
	}
	s.persist(ctx)
	return item, nil
}

// SetTags replaces an item's tags. Tags are trimmed and deduplicated
// case-insensitively, preserving first-seen casing.
func (s *Service) SetTags(ctx context.Context, id string, tags []string) (domain.GalleryItem, error) {
	normalized := normalizeTags(tags)
	s.mu.Lock()
	var item domain.GalleryItem
	found := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Tags = normalized
			item = s.items[i]
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return domain.GalleryItem{}, domain.ErrNotFound
	}
	s.persist(ctx)
	return item, nil
}

// Restore loads the persisted gallery snapshot.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	blob, err := s.store.Load(ctx, store.BlobGallery)
	if err != nil {
		return err
	}
	if blob == nil {
		return nil
	}
	var state persistedGallery
	if err := json.Unmarshal(blob, &state); err != nil {
		s.logger.Warn().Err(err).Msg("gallery: discarding unreadable snapshot")
		return nil
	}
	s.mu.Lock()
	s.items = state.Items
	for i := range s.items {
		if s.items[i].Tags == nil {
			s.items[i].Tags = []string{}
		}
	}
	restored := len(s.items)
	s.mu.Unlock()

	s.logger.Info().Int("items", restored).Msg("gallery: restored snapshot")
	return nil
}

func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.mu.RLock()
	state := persistedGallery{Items: make([]domain.GalleryItem, len(s.items))}
	copy(state.Items, s.items)
	s.mu.RUnlock()

	blob, err := json.Marshal(state)
	if err != nil {
		s.logger.Error().Err(err).Msg("gallery: marshal snapshot")
		return
	}
	if err := s.store.Save(ctx, store.BlobGallery, blob); err != nil {
		s.logger.Warn().Err(err).Msg("gallery: persist snapshot")
	}
}

func matches(item domain.GalleryItem, filter Filter) bool {
	if filter.Kind != "" && item.Kind != filter.Kind {
		return false
	}
	if filter.Model != "" && !strings.EqualFold(item.Model, filter.Model) {
		return false
	}
	if filter.FavoritesOnly && !item.Favorite {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		if strings.Contains(strings.ToLower(item.Prompt), search) {
			return true
		}
		for _, tag := range item.Tags {
			if strings.Contains(strings.ToLower(tag), search) {
				return true
			}
		}
		return false
	}
	return true
}

func sortItems(items []domain.GalleryItem, sortBy, sortDir string) {
	asc := strings.EqualFold(sortDir, "asc")
	less := func(a, b domain.GalleryItem) bool {
		switch strings.ToLower(sortBy) {
		case "type":
			if a.Kind != b.Kind {
				return a.Kind < b.Kind
			}
		case "model":
			if !strings.EqualFold(a.Model, b.Model) {
				return strings.ToLower(a.Model) < strings.ToLower(b.Model)
			}
		}
		// Date is both the default sort and the tiebreaker.
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
