package store

import (
	"context"
	"sync"
)

// Blob names used across the application. Each component owns exactly one
// named blob and serializes its own snapshot format.
const (
	BlobQueue         = "queue"
	BlobGallery       = "gallery"
	BlobPromptHistory = "prompt_history"
	BlobSettings      = "settings"
)

// BlobStore persists opaque named snapshots. Load returns (nil, nil) when no
// snapshot exists under the name so callers can distinguish "fresh install"
// from a read failure.
type BlobStore interface {
	Save(ctx context.Context, name string, blob []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// MemoryStore keeps blobs in process memory. Used when no DATABASE_URL is
// configured and throughout the test suite.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, name string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[name] = cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[name]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, name)
	return nil
}

var _ BlobStore = (*MemoryStore)(nil)
