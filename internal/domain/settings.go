package domain

// Settings holds user preferences and provider credentials. Keys are stored
// locally at the user's responsibility; they are never logged.
type Settings struct {
	XAIAPIKey    string `json:"xai_api_key"`
	GeminiAPIKey string `json:"gemini_api_key"`

	Theme              string `json:"theme"`
	DefaultModel       string `json:"default_model"`
	DefaultAspectRatio string `json:"default_aspect_ratio"`
	AutoSaveToGallery  bool   `json:"auto_save_to_gallery"`
	ShowSuggestions    bool   `json:"show_prompt_suggestions"`
	HapticFeedback     bool   `json:"haptic_feedback"`
}

// DefaultSettings returns the preferences a fresh profile starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:              "dark",
		DefaultModel:       "grok",
		DefaultAspectRatio: "1:1",
		AutoSaveToGallery:  true,
		ShowSuggestions:    true,
		HapticFeedback:     true,
	}
}
