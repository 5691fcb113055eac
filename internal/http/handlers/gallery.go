package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"genstudio/internal/domain"
	"genstudio/internal/gallery"
	"genstudio/pkg/zip"
)

// ListResults returns the current session's finished generations,
// newest-first. Results live only in memory and vanish on restart.
func (a *App) ListResults(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, mediaResponse{Media: a.Gallery.Results()})
}

// ClearResults empties the session results without touching the gallery.
func (a *App) ClearResults(w http.ResponseWriter, r *http.Request) {
	a.Gallery.ClearResults()
	w.WriteHeader(http.StatusNoContent)
}

type galleryListResponse struct {
	Items []domain.GalleryItem `json:"items"`
}

type galleryItemResponse struct {
	Item domain.GalleryItem `json:"item"`
}

func galleryFilterFrom(r *http.Request) gallery.Filter {
	q := r.URL.Query()
	return gallery.Filter{
		Kind:          domain.MediaKind(q.Get("kind")),
		Model:         q.Get("model"),
		Search:        q.Get("search"),
		FavoritesOnly: q.Get("favorites") == "true",
		SortBy:        q.Get("sort_by"),
		SortDir:       q.Get("sort_dir"),
	}
}

// ListGallery returns saved gallery items, filtered and sorted per query.
func (a *App) ListGallery(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, galleryListResponse{Items: a.Gallery.Items(galleryFilterFrom(r))})
}

type saveToGalleryRequest struct {
	ID string `json:"id"`
}

// SaveToGallery promotes one session result into the persistent gallery.
func (a *App) SaveToGallery(w http.ResponseWriter, r *http.Request) {
	var req saveToGalleryRequest
	if !a.decode(w, r, &req) {
		return
	}

	var media domain.GeneratedMedia
	found := false
	for _, m := range a.Gallery.Results() {
		if m.ID == req.ID {
			media, found = m, true
			break
		}
	}
	if !found {
		a.fail(w, domain.ErrNotFound)
		return
	}

	item, err := a.Gallery.SaveToGallery(r.Context(), media)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, galleryItemResponse{Item: item})
}

// RemoveGalleryItem deletes one gallery item and its offloaded file, if any.
func (a *App) RemoveGalleryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	item, ok := a.Gallery.Get(id)
	if !ok {
		a.fail(w, domain.ErrNotFound)
		return
	}
	a.Gallery.Remove(r.Context(), id)
	a.removeLocalFile(r, item.Location)
	w.WriteHeader(http.StatusNoContent)
}

type removeManyRequest struct {
	IDs []string `json:"ids"`
}

// RemoveGalleryItems deletes a batch of gallery items.
func (a *App) RemoveGalleryItems(w http.ResponseWriter, r *http.Request) {
	var req removeManyRequest
	if !a.decode(w, r, &req) {
		return
	}

	for _, id := range req.IDs {
		if item, ok := a.Gallery.Get(id); ok {
			a.removeLocalFile(r, item.Location)
		}
	}
	removed := a.Gallery.RemoveMany(r.Context(), req.IDs)
	a.json(w, http.StatusOK, map[string]int{"removed": removed})
}

// ToggleFavorite flips the favorite flag on one gallery item.
func (a *App) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	item, err := a.Gallery.ToggleFavorite(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, galleryItemResponse{Item: item})
}

type setTagsRequest struct {
	Tags []string `json:"tags"`
}

// SetTags replaces the tag list on one gallery item.
func (a *App) SetTags(w http.ResponseWriter, r *http.Request) {
	var req setTagsRequest
	if !a.decode(w, r, &req) {
		return
	}
	item, err := a.Gallery.SetTags(r.Context(), chi.URLParam(r, "itemID"), req.Tags)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, galleryItemResponse{Item: item})
}

type exportManifestEntry struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Filename string   `json:"filename,omitempty"`
	Location string   `json:"location,omitempty"`
	Prompt   string   `json:"prompt"`
	Model    string   `json:"model"`
	Tags     []string `json:"tags,omitempty"`
	Favorite bool     `json:"favorite,omitempty"`
}

// ExportGallery bundles the filtered gallery into a zip download. Inline and
// locally stored media go in as files; remote URLs are listed in the manifest
// only, since re-downloading them is the client's call.
func (a *App) ExportGallery(w http.ResponseWriter, r *http.Request) {
	items := a.Gallery.Items(galleryFilterFrom(r))
	if len(items) == 0 {
		a.fail(w, domain.ErrNotFound)
		return
	}

	ctx := r.Context()
	assets := make([]zip.Asset, 0, len(items)+1)
	manifest := make([]exportManifestEntry, 0, len(items))
	for i, item := range items {
		entry := exportManifestEntry{
			ID:       item.ID,
			Kind:     string(item.Kind),
			Prompt:   item.Prompt,
			Model:    item.Model,
			Tags:     item.Tags,
			Favorite: item.Favorite,
		}

		var (
			mimeType = "image/png"
			data     []byte
		)
		if m, d, ok := decodeDataURL(item.Location); ok {
			mimeType, data = m, d
		} else if a.Files != nil {
			if d, err := a.Files.Read(ctx, item.Location); err == nil {
				data = d
				if item.Kind == domain.MediaKindVideo {
					mimeType = "video/mp4"
				}
			}
		}

		if data == nil {
			entry.Location = item.Location
		} else {
			entry.Filename = fmt.Sprintf("%s-%03d%s", item.Kind, i+1, extensionFor(mimeType))
			assets = append(assets, zip.Asset{Filename: entry.Filename, MIME: mimeType, Data: data})
		}
		manifest = append(manifest, entry)
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		a.fail(w, err)
		return
	}
	assets = append(assets, zip.Asset{Filename: "manifest.json", MIME: "application/json", Data: manifestJSON})

	archive, err := zip.Archive(assets)
	if err != nil {
		a.fail(w, err)
		return
	}

	filename := fmt.Sprintf("gallery-export-%s.zip", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) removeLocalFile(r *http.Request, location string) {
	if a.Files == nil || location == "" {
		return
	}
	if err := a.Files.Remove(r.Context(), location); err != nil {
		a.Logger.Warn().Err(err).Str("location", location).Msg("handlers: remove media file")
	}
}
