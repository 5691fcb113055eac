package history

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"genstudio/internal/domain"
	"genstudio/internal/store"
)

func TestRecordNewPrompt(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	entry, err := s.Record(ctx, "a misty forest", domain.ModeTextToImage, "grok", "photo-portrait")
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if entry.ID == "" || entry.UsageCount != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(s.List("")) != 1 {
		t.Fatal("entry missing from list")
	}
}

func TestRecordEmptyPrompt(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	if _, err := s.Record(context.Background(), "  ", domain.ModeTextToImage, "grok", ""); !errors.Is(err, domain.ErrMissingPrompt) {
		t.Fatalf("expected ErrMissingPrompt, got %v", err)
	}
}

func TestRecordDeduplicatesCaseInsensitively(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	first, _ := s.Record(ctx, "A Misty Forest", domain.ModeTextToImage, "grok", "")
	s.Record(ctx, "ocean waves", domain.ModeTextToVideo, "grok", "")
	second, err := s.Record(ctx, "a misty forest", domain.ModeTextToImage, "gemini-flash", "")
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	if second.ID != first.ID {
		t.Fatal("duplicate prompt created a new entry")
	}
	if second.UsageCount != 2 {
		t.Fatalf("usage count = %d, want 2", second.UsageCount)
	}
	if second.Model != "gemini-flash" {
		t.Fatal("re-record did not refresh model")
	}

	entries := s.List("")
	if len(entries) != 2 {
		t.Fatalf("list size = %d, want 2", len(entries))
	}
	if entries[0].ID != first.ID {
		t.Fatal("reused prompt not moved to front")
	}
}

func TestHistoryCapped(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	for i := 0; i < maxEntries+10; i++ {
		s.Record(ctx, fmt.Sprintf("prompt %d", i), domain.ModeTextToImage, "grok", "")
	}
	entries := s.List("")
	if len(entries) != maxEntries {
		t.Fatalf("list size = %d, want %d", len(entries), maxEntries)
	}
	if entries[0].Prompt != fmt.Sprintf("prompt %d", maxEntries+9) {
		t.Fatal("newest prompt not first")
	}
}

func TestListSearch(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	s.Record(ctx, "a misty forest", domain.ModeTextToImage, "grok", "")
	s.Record(ctx, "ocean waves", domain.ModeTextToVideo, "grok", "")

	got := s.List("MIST")
	if len(got) != 1 || got[0].Prompt != "a misty forest" {
		t.Fatalf("search wrong: %+v", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	entry, _ := s.Record(ctx, "a misty forest", domain.ModeTextToImage, "grok", "")
	s.Record(ctx, "ocean waves", domain.ModeTextToVideo, "grok", "")

	if !s.Remove(ctx, entry.ID) {
		t.Fatal("expected removal")
	}
	if s.Remove(ctx, entry.ID) {
		t.Fatal("double removal reported success")
	}
	s.Clear(ctx)
	if len(s.List("")) != 0 {
		t.Fatal("history not cleared")
	}
}

func TestHistoryPersistsAcrossRestart(t *testing.T) {
	blobs := store.NewMemoryStore()
	ctx := context.Background()

	s := NewService(blobs, nil)
	s.Record(ctx, "a misty forest", domain.ModeTextToImage, "grok", "")
	s.Record(ctx, "a misty forest", domain.ModeTextToImage, "grok", "")

	restored := NewService(blobs, nil)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	entries := restored.List("")
	if len(entries) != 1 {
		t.Fatalf("restored size = %d, want 1", len(entries))
	}
	if entries[0].UsageCount != 2 {
		t.Fatalf("usage count lost: %+v", entries[0])
	}
}
