package provider

import (
	"context"

	"genstudio/internal/domain"
)

// KeySource supplies a provider API key at call time. Keys live in user
// settings and may change between requests, so clients never cache them.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// KeyFunc adapts a function to the KeySource interface.
type KeyFunc func(ctx context.Context) (string, error)

func (f KeyFunc) APIKey(ctx context.Context) (string, error) { return f(ctx) }

// StaticKey is a fixed-key KeySource, used in tests and single-tenant setups.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) { return string(k), nil }

// GenerateRequest asks a provider to synthesize images from text.
type GenerateRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	Count       int
}

// EditRequest asks a provider to rework an existing image. Image is either a
// public URL or a base64 data URL.
type EditRequest struct {
	Model    string
	Prompt   string
	Image    string
	MimeType string
	Count    int
}

// VideoRequest asks a provider to start an asynchronous video generation.
type VideoRequest struct {
	Model       string
	Prompt      string
	Duration    int
	AspectRatio string
	Resolution  string
	ImageURL    string
}

// ImageOutput is a single generated image, addressed by URL or data URL.
type ImageOutput struct {
	Location string
}

// VideoPoll is the provider-reported state of an in-flight video job.
type VideoPoll struct {
	Status   domain.JobStatus
	Location string
	Error    string
}

// Gateway is the uniform surface the rest of the application uses to talk to
// a generation provider. Providers that cannot serve an operation return
// domain.ErrUnsupportedOperation.
type Gateway interface {
	GenerateImages(ctx context.Context, req GenerateRequest) ([]ImageOutput, error)
	EditImage(ctx context.Context, req EditRequest) ([]ImageOutput, error)
	SubmitVideo(ctx context.Context, req VideoRequest) (string, error)
	VideoStatus(ctx context.Context, providerJobID string) (VideoPoll, error)
}
