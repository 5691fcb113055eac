package zip

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestArchive(t *testing.T) {
	data, err := Archive([]Asset{
		{Filename: "a.png", MIME: "image/png", Data: []byte("one")},
		{Filename: "a.png", MIME: "image/png", Data: []byte("two")},
		{Filename: "", Data: []byte("skipped")},
		{Filename: "empty.png"},
	})
	if err != nil {
		t.Fatalf("Archive error: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("invalid archive: %v", err)
	}
	if len(r.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(r.File))
	}
	if r.File[0].Name != "a.png" || r.File[1].Name != "a-1.png" {
		t.Fatalf("names = %q, %q", r.File[0].Name, r.File[1].Name)
	}
}

func TestArchiveRenameSkipsTakenNames(t *testing.T) {
	data, err := Archive([]Asset{
		{Filename: "a-1.png", MIME: "image/png", Data: []byte("one")},
		{Filename: "a.png", MIME: "image/png", Data: []byte("two")},
		{Filename: "a.png", MIME: "image/png", Data: []byte("three")},
	})
	if err != nil {
		t.Fatalf("Archive error: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("invalid archive: %v", err)
	}
	names := make(map[string]int, len(r.File))
	for _, f := range r.File {
		names[f.Name]++
	}
	if len(names) != 3 {
		t.Fatalf("entries = %v, want 3 distinct names", names)
	}
	for name, count := range names {
		if count != 1 {
			t.Fatalf("name %q appears %d times", name, count)
		}
	}
	if _, ok := names["a-2.png"]; !ok {
		t.Fatalf("renamed duplicate missing, got %v", names)
	}
}
