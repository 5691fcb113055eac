package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/provider"
)

const (
	xaiDefaultBaseURL = "https://api.x.ai/v1"
	xaiDefaultTimeout = 15 * time.Second
	xaiEnhanceModel   = "grok-3-mini"
)

type XAIOptions struct {
	Keys       provider.KeySource
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Enhancer
}

// XAIEnhancer enhances prompts with the Grok chat model, degrading to the
// fallback enhancer when the remote call cannot be served.
type XAIEnhancer struct {
	keys     provider.KeySource
	baseURL  string
	client   *http.Client
	fallback Enhancer
}

func NewXAIEnhancer(opts XAIOptions) *XAIEnhancer {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = xaiDefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: xaiDefaultTimeout}
	}
	return &XAIEnhancer{
		keys:     opts.Keys,
		baseURL:  baseURL,
		client:   client,
		fallback: opts.Fallback,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *XAIEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.ErrMissingPrompt
	}
	key, err := e.keys.APIKey(ctx)
	if err != nil || strings.TrimSpace(key) == "" {
		return e.useFallback(ctx, prompt)
	}

	payload := chatCompletionRequest{
		Model: xaiEnhanceModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Enhance this image generation prompt:\n\n\"" + prompt + "\""},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return e.useFallback(ctx, prompt)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", &buf)
	if err != nil {
		return e.useFallback(ctx, prompt)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

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
	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return e.useFallback(ctx, prompt)
	}
	if len(out.Choices) == 0 {
		return e.useFallback(ctx, prompt)
	}
	enhanced := cleanEnhanced(out.Choices[0].Message.Content)
	if enhanced == "" {
		return e.useFallback(ctx, prompt)
	}
	return enhanced, nil
}

func (e *XAIEnhancer) useFallback(ctx context.Context, prompt string) (string, error) {
	if e.fallback != nil {
		return e.fallback.Enhance(ctx, prompt)
	}
	return NewStaticEnhancer().Enhance(ctx, prompt)
}

var _ Enhancer = (*XAIEnhancer)(nil)
