package settings

import (
	"context"
	"errors"
	"testing"

	"genstudio/internal/domain"
	"genstudio/internal/store"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestDefaults(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	current := s.Current()
	if current.Theme != "dark" || current.DefaultModel != "grok" || !current.AutoSaveToGallery {
		t.Fatalf("unexpected defaults: %+v", current)
	}
}

func TestApplyPartialUpdate(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	updated := s.Apply(ctx, Update{
		XAIAPIKey: strPtr(" xai-key "),
		Theme:     strPtr("light"),
	})
	if updated.XAIAPIKey != "xai-key" {
		t.Fatalf("key not trimmed: %q", updated.XAIAPIKey)
	}
	if updated.Theme != "light" {
		t.Fatalf("theme = %q", updated.Theme)
	}
	if updated.DefaultModel != "grok" {
		t.Fatal("untouched field changed")
	}

	updated = s.Apply(ctx, Update{AutoSaveToGallery: boolPtr(false)})
	if updated.XAIAPIKey != "xai-key" {
		t.Fatal("sparse update clobbered stored key")
	}
	if updated.AutoSaveToGallery {
		t.Fatal("auto-save not disabled")
	}
}

func TestAPIKeyFor(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	s.Apply(ctx, Update{
		XAIAPIKey:    strPtr("xk"),
		GeminiAPIKey: strPtr("gk"),
	})

	if key, err := s.APIKeyFor("grok-2-image"); err != nil || key != "xk" {
		t.Fatalf("grok key = %q err=%v", key, err)
	}
	if key, err := s.APIKeyFor("gemini-flash"); err != nil || key != "gk" {
		t.Fatalf("gemini key = %q err=%v", key, err)
	}
	if key, err := s.APIKeyFor("imagen-4.0-generate-001"); err != nil || key != "gk" {
		t.Fatalf("imagen key = %q err=%v", key, err)
	}
	if _, err := s.APIKeyFor("dall-e"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestKeySourcesTrackUpdates(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	src := s.XAIKeySource()

	if key, _ := src.APIKey(ctx); key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
	s.Apply(ctx, Update{XAIAPIKey: strPtr("fresh")})
	if key, _ := src.APIKey(ctx); key != "fresh" {
		t.Fatalf("key source stale: %q", key)
	}
}

func TestReset(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	s.Apply(ctx, Update{XAIAPIKey: strPtr("xk"), Theme: strPtr("light")})

	current := s.Reset(ctx)
	if current.XAIAPIKey != "" || current.Theme != "dark" {
		t.Fatalf("reset incomplete: %+v", current)
	}
}

func TestSettingsPersistAcrossRestart(t *testing.T) {
	blobs := store.NewMemoryStore()
	ctx := context.Background()

	s := NewService(blobs, nil)
	s.Apply(ctx, Update{GeminiAPIKey: strPtr("gk"), HapticFeedback: boolPtr(false)})

	restored := NewService(blobs, nil)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	current := restored.Current()
	if current.GeminiAPIKey != "gk" || current.HapticFeedback {
		t.Fatalf("settings lost across restart: %+v", current)
	}

	fresh := NewService(store.NewMemoryStore(), nil)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("Restore on empty store: %v", err)
	}
	if fresh.Current().Theme != "dark" {
		t.Fatal("defaults lost on empty restore")
	}
}
