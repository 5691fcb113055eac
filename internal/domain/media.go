package domain

import "time"

// MediaKind enumerates generated media categories.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// GeneratedMedia represents one finished generation result. For media
// produced by an asynchronous video job the ID matches the job's ID so the
// queue entry and the gallery entry can be correlated.
type GeneratedMedia struct {
	ID          string    `json:"id"`
	Kind        MediaKind `json:"kind"`
	Location    string    `json:"location"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model"`
	AspectRatio string    `json:"aspect_ratio"`
	SourceImage string    `json:"source_image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// GalleryItem is a GeneratedMedia promoted into the durable gallery.
// Favorite and Tags default at creation and are mutable thereafter.
type GalleryItem struct {
	GeneratedMedia
	Favorite bool     `json:"favorite"`
	Tags     []string `json:"tags"`
}
