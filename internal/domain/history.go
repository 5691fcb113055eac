package domain

import "time"

// GenerationMode enumerates the studio's generation surfaces.
type GenerationMode string

const (
	ModeTextToImage  GenerationMode = "t2i"
	ModeImageToImage GenerationMode = "i2i"
	ModeTextToVideo  GenerationMode = "t2v"
	ModeImageToVideo GenerationMode = "i2v"
)

// PromptHistoryItem records one prompt the user has generated with.
type PromptHistoryItem struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt"`
	Mode        GenerationMode `json:"mode"`
	Model       string         `json:"model"`
	StylePreset string         `json:"style_preset,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UsageCount  int            `json:"usage_count"`
}
