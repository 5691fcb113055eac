package storage

import (
	"context"
	"testing"
)

func TestWriteReadRemove(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()

	key, err := s.Write(ctx, "media/abc.png", []byte("bytes"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if key != "media/abc.png" {
		t.Fatalf("key = %q", key)
	}

	data, err := s.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(data) != "bytes" {
		t.Fatalf("data = %q", data)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove should be idempotent: %v", err)
	}
	if _, err := s.Read(ctx, key); err == nil {
		t.Fatal("expected read failure after remove")
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	if _, err := s.Write(context.Background(), "../outside.png", []byte("x")); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := s.Write(context.Background(), "  ", []byte("x")); err == nil {
		t.Fatal("expected empty key rejection")
	}
}
