package xai

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
	defaultBaseURL = "https://api.x.ai/v1"
	defaultTimeout = 60 * time.Second

	imageModel  = "grok-2-image"
	visionModel = "grok-2-vision"
)

// Options configures the xAI client.
type Options struct {
	Keys       provider.KeySource
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the xAI generation API. Images resolve synchronously;
// videos are submitted and then polled by request id.
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

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageDatum struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type imageResponse struct {
	Data    []imageDatum `json:"data"`
	Created int64        `json:"created"`
}

type responsesRequest struct {
	Model string          `json:"model"`
	Store bool            `json:"store"`
	Input []responseInput `json:"input"`
}

type responseInput struct {
	Role    string            `json:"role"`
	Content []responseContent `json:"content"`
}

type responseContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content"`
	} `json:"output"`
}

type imageEditRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
	N      int    `json:"n"`
}

type videoGenerationRequest struct {
	Prompt      string          `json:"prompt"`
	Duration    int             `json:"duration"`
	AspectRatio string          `json:"aspect_ratio"`
	Resolution  string          `json:"resolution"`
	Image       *videoImageHint `json:"image,omitempty"`
}

type videoImageHint struct {
	URL string `json:"url"`
}

type videoSubmitResponse struct {
	RequestID string `json:"request_id"`
}

type videoStatusResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	VideoURL  string `json:"video_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message,omitempty"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// GenerateImages creates images from a text prompt. Aspect ratio and count
// pass through to the API; the model is always the xAI image model.
func (c *Client) GenerateImages(ctx context.Context, req provider.GenerateRequest) ([]provider.ImageOutput, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrMissingPrompt
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	payload := imageGenerationRequest{
		Model:          imageModel,
		Prompt:         req.Prompt,
		N:              count,
		AspectRatio:    aspect,
		ResponseFormat: "url",
	}

	var out imageResponse
	if err := c.invoke(ctx, http.MethodPost, "/images/generations", payload, &out); err != nil {
		return nil, err
	}
	return imageOutputs(out), nil
}

// EditImage describes the source image with the vision model and feeds the
// description back into image generation. Falls back to the edits endpoint
// when the vision model returns no usable text.
func (c *Client) EditImage(ctx context.Context, req provider.EditRequest) ([]provider.ImageOutput, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrMissingPrompt
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	payload := responsesRequest{
		Model: visionModel,
		Store: false,
		Input: []responseInput{{
			Role: "user",
			Content: []responseContent{
				{Type: "input_image", ImageURL: req.Image, Detail: "high"},
				{Type: "input_text", Text: req.Prompt},
			},
		}},
	}

	var described responsesResponse
	if err := c.invoke(ctx, http.MethodPost, "/responses", payload, &described); err != nil {
		return nil, err
	}

	if text := firstOutputText(described); text != "" {
		return c.GenerateImages(ctx, provider.GenerateRequest{
			Prompt:      req.Prompt + ". " + text,
			AspectRatio: "",
			Count:       count,
		})
	}

	editPayload := imageEditRequest{
		Model:  imageModel,
		Prompt: req.Prompt,
		Image:  req.Image,
		N:      count,
	}
	var out imageResponse
	if err := c.invoke(ctx, http.MethodPost, "/images/edits", editPayload, &out); err != nil {
		return nil, err
	}
	return imageOutputs(out), nil
}

// SubmitVideo starts an asynchronous video generation and returns the
// provider's request id.
func (c *Client) SubmitVideo(ctx context.Context, req provider.VideoRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", domain.ErrMissingPrompt
	}
	payload := videoGenerationRequest{
		Prompt:      req.Prompt,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	}
	if req.ImageURL != "" {
		payload.Image = &videoImageHint{URL: req.ImageURL}
	}

	var out videoSubmitResponse
	if err := c.invoke(ctx, http.MethodPost, "/videos/generations", payload, &out); err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", fmt.Errorf("%w: xai returned no request id", domain.ErrProviderFailure)
	}
	return out.RequestID, nil
}

// VideoStatus fetches the current state of a submitted video job.
func (c *Client) VideoStatus(ctx context.Context, providerJobID string) (provider.VideoPoll, error) {
	var out videoStatusResponse
	path := "/videos/" + url.PathEscape(providerJobID)
	if err := c.invoke(ctx, http.MethodGet, path, nil, &out); err != nil {
		return provider.VideoPoll{}, err
	}
	return provider.VideoPoll{
		Status:   domain.JobStatus(out.Status),
		Location: out.VideoURL,
		Error:    out.Error,
	}, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload, out any) error {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return domain.ErrMissingAPIKey
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke xai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode xai response: %w", err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	var apiErr apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		c.logger.Warn().Int("status", resp.StatusCode).Str("message", apiErr.Error.Message).Msg("xai: api error")
		return fmt.Errorf("%w: xai status %d: %s", domain.ErrProviderFailure, resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("%w: xai status %d", domain.ErrProviderFailure, resp.StatusCode)
}

func imageOutputs(resp imageResponse) []provider.ImageOutput {
	outputs := make([]provider.ImageOutput, 0, len(resp.Data))
	for _, d := range resp.Data {
		switch {
		case d.URL != "":
			outputs = append(outputs, provider.ImageOutput{Location: d.URL})
		case d.B64JSON != "":
			outputs = append(outputs, provider.ImageOutput{Location: "data:image/png;base64," + d.B64JSON})
		}
	}
	return outputs
}

func firstOutputText(resp responsesResponse) string {
	for _, item := range resp.Output {
		for _, content := range item.Content {
			if content.Type == "text" && strings.TrimSpace(content.Text) != "" {
				return strings.TrimSpace(content.Text)
			}
		}
	}
	return ""
}

var _ provider.Gateway = (*Client)(nil)
