package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"genstudio/internal/domain"
	"genstudio/internal/provider"
)

type generateImagesRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
	Count       int    `json:"count"`
	SourceImage string `json:"source_image"`
	MimeType    string `json:"mime_type"`
	StylePreset string `json:"style_preset"`
}

type mediaResponse struct {
	Media []domain.GeneratedMedia `json:"media"`
}

// GenerateImages serves synchronous image generation and editing. Unlike
// video, images resolve within the request and never enter the job queue.
func (a *App) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req generateImagesRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.fail(w, domain.ErrMissingPrompt)
		return
	}

	current := a.Settings.Current()
	if req.Model == "" {
		req.Model = current.DefaultModel
	}
	if req.AspectRatio == "" {
		req.AspectRatio = current.DefaultAspectRatio
	}

	gw, err := a.Registry.For(req.Model)
	if err != nil {
		a.fail(w, err)
		return
	}

	ctx := r.Context()
	mode := domain.ModeTextToImage
	var outputs []provider.ImageOutput
	if req.SourceImage != "" {
		mode = domain.ModeImageToImage
		outputs, err = gw.EditImage(ctx, provider.EditRequest{
			Model:    req.Model,
			Prompt:   req.Prompt,
			Image:    req.SourceImage,
			MimeType: req.MimeType,
			Count:    req.Count,
		})
	} else {
		outputs, err = gw.GenerateImages(ctx, provider.GenerateRequest{
			Model:       req.Model,
			Prompt:      req.Prompt,
			AspectRatio: req.AspectRatio,
			Count:       req.Count,
		})
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(outputs) == 0 && a.FailOnEmptyResult {
		a.fail(w, domain.ErrEmptyResult)
		return
	}

	if _, err := a.History.Record(ctx, req.Prompt, mode, req.Model, req.StylePreset); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: record prompt history")
	}

	media := make([]domain.GeneratedMedia, 0, len(outputs))
	for _, out := range outputs {
		id := uuid.NewString()
		item := domain.GeneratedMedia{
			ID:          id,
			Kind:        domain.MediaKindImage,
			Location:    a.storeLocally(ctx, id, out.Location),
			Prompt:      req.Prompt,
			Model:       req.Model,
			AspectRatio: req.AspectRatio,
			SourceImage: req.SourceImage,
			CreatedAt:   time.Now().UTC(),
		}
		if err := a.Gallery.Publish(ctx, item); err != nil {
			a.Logger.Warn().Err(err).Str("media_id", id).Msg("handlers: publish result")
		}
		media = append(media, item)
	}

	a.json(w, http.StatusCreated, mediaResponse{Media: media})
}

// storeLocally offloads inline base64 payloads to the file store when one is
// configured, returning the storage key instead of the data URL. Remote URLs
// pass through untouched.
func (a *App) storeLocally(ctx context.Context, id, location string) string {
	if a.Files == nil || !strings.HasPrefix(location, "data:") {
		return location
	}
	mimeType, data, ok := decodeDataURL(location)
	if !ok {
		return location
	}
	key, err := a.Files.Write(ctx, "media/"+id+extensionFor(mimeType), data)
	if err != nil {
		a.Logger.Warn().Err(err).Str("media_id", id).Msg("handlers: offload media")
		return location
	}
	return key
}

func decodeDataURL(location string) (string, []byte, bool) {
	rest := strings.TrimPrefix(location, "data:")
	idx := strings.Index(rest, ";base64,")
	if idx < 0 {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(rest[idx+len(";base64,"):])
	if err != nil {
		return "", nil, false
	}
	mimeType := rest[:idx]
	if mimeType == "" {
		mimeType = "image/png"
	}
	return mimeType, data, true
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".png"
	}
}
