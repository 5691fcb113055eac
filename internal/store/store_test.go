package store

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, BlobQueue, []byte(`{"jobs":[]}`)); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	blob, err := s.Load(ctx, BlobQueue)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !bytes.Equal(blob, []byte(`{"jobs":[]}`)) {
		t.Fatalf("unexpected blob: %s", blob)
	}
}

func TestMemoryStoreMissingName(t *testing.T) {
	s := NewMemoryStore()
	blob, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil blob, got %q", blob)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Save(ctx, BlobSettings, []byte("x")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Delete(ctx, BlobSettings); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	blob, err := s.Load(ctx, BlobSettings)
	if err != nil || blob != nil {
		t.Fatalf("expected deleted blob, got %q err %v", blob, err)
	}
}

func TestMemoryStoreCopiesOnSave(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	src := []byte("abc")
	if err := s.Save(ctx, "b", src); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	src[0] = 'z'
	blob, err := s.Load(ctx, "b")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if string(blob) != "abc" {
		t.Fatalf("stored blob mutated: %s", blob)
	}
}

type stubExecutor struct {
	payload []byte
	err     error
	exec    struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{payload: s.payload, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	payload []byte
	err     error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*[]byte)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.payload
	return nil
}

func TestSQLStoreSave(t *testing.T) {
	exec := &stubExecutor{}
	s := NewSQLStore(exec)
	if err := s.Save(context.Background(), BlobGallery, []byte("payload")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if len(exec.exec.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != BlobGallery {
		t.Fatalf("expected gallery name argument, got %T %v", exec.exec.args[0], exec.exec.args[0])
	}
}

func TestSQLStoreSaveEmptyName(t *testing.T) {
	s := NewSQLStore(&stubExecutor{})
	if err := s.Save(context.Background(), " ", []byte("x")); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestSQLStoreLoad(t *testing.T) {
	s := NewSQLStore(&stubExecutor{payload: []byte("snapshot")})
	blob, err := s.Load(context.Background(), BlobQueue)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if string(blob) != "snapshot" {
		t.Fatalf("expected snapshot, got %q", blob)
	}
}

func TestSQLStoreLoad_NoRows(t *testing.T) {
	s := NewSQLStore(&stubExecutor{err: pgx.ErrNoRows})
	blob, err := s.Load(context.Background(), BlobQueue)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil blob, got %q", blob)
	}
}
