package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/provider"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultTimeout = 15 * time.Second
	geminiEnhanceModel   = "gemini-2.0-flash"
)

type GeminiOptions struct {
	Keys       provider.KeySource
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Enhancer
}

// GeminiEnhancer enhances prompts with the Gemini flash model, degrading to
// the fallback enhancer when the remote call cannot be served.
type GeminiEnhancer struct {
	keys     provider.KeySource
	baseURL  string
	client   *http.Client
	fallback Enhancer
}

func NewGeminiEnhancer(opts GeminiOptions) *GeminiEnhancer {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiEnhancer{
		keys:     opts.Keys,
		baseURL:  baseURL,
		client:   client,
		fallback: opts.Fallback,
	}
}

type geminiEnhanceRequest struct {
	Contents         []geminiEnhanceContent `json:"contents"`
	GenerationConfig geminiEnhanceConfig    `json:"generationConfig"`
}

type geminiEnhanceContent struct {
	Role  string              `json:"role"`
	Parts []geminiEnhancePart `json:"parts"`
}

type geminiEnhancePart struct {
	Text string `json:"text"`
}

type geminiEnhanceConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiEnhanceResponse struct {
	Candidates []struct {
		Content geminiEnhanceContent `json:"content"`
	} `json:"candidates"`
}

func (e *GeminiEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.ErrMissingPrompt
	}
	key, err := e.keys.APIKey(ctx)
	if err != nil || strings.TrimSpace(key) == "" {
		return e.useFallback(ctx, prompt)
	}

	payload := geminiEnhanceRequest{
		Contents: []geminiEnhanceContent{{
			Role: "user",
			Parts: []geminiEnhancePart{{
				Text: systemPrompt + "\n\nEnhance this image generation prompt:\n\n\"" + prompt + "\"",
			}},
		}},
		GenerationConfig: geminiEnhanceConfig{
			MaxOutputTokens: 500,
			Temperature:     0.7,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return e.useFallback(ctx, prompt)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.baseURL, url.PathEscape(geminiEnhanceModel), url.QueryEscape(key))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return e.useFallback(ctx, prompt)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return e.useFallback(ctx, prompt)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return e.useFallback(ctx, prompt)
	}
	var out geminiEnhanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return e.useFallback(ctx, prompt)
	}
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if enhanced := cleanEnhanced(p.Text); enhanced != "" {
				return enhanced, nil
			}
		}
	}
	return e.useFallback(ctx, prompt)
}

func (e *GeminiEnhancer) useFallback(ctx context.Context, prompt string) (string, error) {
	if e.fallback != nil {
		return e.fallback.Enhance(ctx, prompt)
	}
	return NewStaticEnhancer().Enhance(ctx, prompt)
}

var _ Enhancer = (*GeminiEnhancer)(nil)
