package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/provider"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 60 * time.Second
)

// modelAliases maps the short model names exposed to users onto the concrete
// Gemini API model identifiers.
var modelAliases = map[string]string{
	"gemini-flash":  "gemini-2.5-flash-image",
	"gemini-pro":    "gemini-3-pro-image-preview",
	"gemini-imagen": "imagen-4.0-generate-001",
}

// ResolveModel translates a user-facing model alias to the API identifier.
// Already-concrete identifiers pass through unchanged.
func ResolveModel(model string) string {
	model = strings.TrimSpace(model)
	if concrete, ok := modelAliases[model]; ok {
		return concrete
	}
	return model
}

// Options configures the Gemini client.
type Options struct {
	Keys       provider.KeySource
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini generation API. Imagen models use the predict
// endpoint; everything else uses generateContent with image modality. The
// API has no asynchronous video surface here, so video operations report
// domain.ErrUnsupportedOperation.
type Client struct {
	keys       provider.KeySource
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		keys:       opts.Keys,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount      int    `json:"sampleCount"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType,omitempty"`
	} `json:"predictions"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// GenerateImages creates images from a text prompt, dispatching on whether
// the resolved model is an Imagen model.
func (c *Client) GenerateImages(ctx context.Context, req provider.GenerateRequest) ([]provider.ImageOutput, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrMissingPrompt
	}
	model := ResolveModel(req.Model)
	if strings.HasPrefix(model, "imagen-") {
		return c.predictImages(ctx, model, req)
	}

	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: req.Prompt}},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	var out generateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &out); err != nil {
		return nil, err
	}
	return inlineOutputs(out), nil
}

// EditImage sends the source image inline alongside the edit instruction.
func (c *Client) EditImage(ctx context.Context, req provider.EditRequest) ([]provider.ImageOutput, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrMissingPrompt
	}
	model := ResolveModel(req.Model)
	if strings.HasPrefix(model, "imagen-") {
		return nil, fmt.Errorf("%w: imagen models cannot edit images", domain.ErrUnsupportedOperation)
	}

	mimeType, data, err := splitImagePayload(req.Image, req.MimeType)
	if err != nil {
		return nil, err
	}
	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: mimeType, Data: data}},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	var out generateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &out); err != nil {
		return nil, err
	}
	return inlineOutputs(out), nil
}

// SubmitVideo is not available through this API surface.
func (c *Client) SubmitVideo(ctx context.Context, req provider.VideoRequest) (string, error) {
	return "", fmt.Errorf("%w: gemini video generation", domain.ErrUnsupportedOperation)
}

// VideoStatus is not available through this API surface.
func (c *Client) VideoStatus(ctx context.Context, providerJobID string) (provider.VideoPoll, error) {
	return provider.VideoPoll{}, fmt.Errorf("%w: gemini video generation", domain.ErrUnsupportedOperation)
}

func (c *Client) predictImages(ctx context.Context, model string, req provider.GenerateRequest) ([]provider.ImageOutput, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{
			SampleCount:      count,
			AspectRatio:      aspect,
			PersonGeneration: "allow_adult",
		},
	}
	var out predictResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:predict", url.PathEscape(model)), payload, &out); err != nil {
		return nil, err
	}
	outputs := make([]provider.ImageOutput, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		mimeType := p.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		outputs = append(outputs, provider.ImageOutput{
			Location: "data:" + mimeType + ";base64," + p.BytesBase64Encoded,
		})
	}
	return outputs, nil
}

func (c *Client) invoke(ctx context.Context, path string, payload, out any) error {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return domain.ErrMissingAPIKey
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", key)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			c.logger.Warn().Int("status", resp.StatusCode).Str("message", apiErr.Error.Message).Msg("gemini: api error")
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func inlineOutputs(resp generateContentResponse) []provider.ImageOutput {
	var outputs []provider.ImageOutput
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			mimeType := p.InlineData.MimeType
			if mimeType == "" {
				mimeType = "image/png"
			}
			outputs = append(outputs, provider.ImageOutput{
				Location: "data:" + mimeType + ";base64," + p.InlineData.Data,
			})
		}
	}
	return outputs
}

// splitImagePayload normalizes an edit source into (mimeType, base64 data).
// Accepts data URLs; raw base64 falls back to the declared mime type.
func splitImagePayload(image, declaredMime string) (string, string, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", "", fmt.Errorf("source image is required")
	}
	if strings.HasPrefix(image, "data:") {
		rest := strings.TrimPrefix(image, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return "", "", fmt.Errorf("source image data url is not base64 encoded")
		}
		mimeType := rest[:semi]
		if mimeType == "" {
			mimeType = "image/png"
		}
		return mimeType, rest[semi+len(";base64,"):], nil
	}
	if declaredMime == "" {
		declaredMime = "image/png"
	}
	return declaredMime, image, nil
}

var _ provider.Gateway = (*Client)(nil)
