package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
)

// Asset is one file destined for an export archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// Archive bundles the assets into a zip. Duplicate filenames are suffixed
// with a counter so every asset survives the export.
func Archive(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(assets))

	for _, asset := range assets {
		name := strings.TrimSpace(asset.Filename)
		if name == "" || len(asset.Data) == 0 {
			continue
		}
		if _, taken := seen[name]; taken {
			ext := path.Ext(name)
			base := strings.TrimSuffix(name, ext)
			for n := 1; ; n++ {
				name = fmt.Sprintf("%s-%d%s", base, n, ext)
				if _, taken := seen[name]; !taken {
					break
				}
			}
		}
		seen[name] = struct{}{}

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %q: %w", name, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %q: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
