package provider

import (
	"context"
	"errors"
	"testing"

	"genstudio/internal/domain"
)

type nopGateway struct{ name string }

func (g *nopGateway) GenerateImages(context.Context, GenerateRequest) ([]ImageOutput, error) {
	return nil, nil
}
func (g *nopGateway) EditImage(context.Context, EditRequest) ([]ImageOutput, error) {
	return nil, nil
}
func (g *nopGateway) SubmitVideo(context.Context, VideoRequest) (string, error) { return "", nil }
func (g *nopGateway) VideoStatus(context.Context, string) (VideoPoll, error) {
	return VideoPoll{}, nil
}

func TestNameFor(t *testing.T) {
	cases := map[string]string{
		"grok":                    NameXAI,
		"grok-2-image":            NameXAI,
		"gemini-flash":            NameGemini,
		"gemini-pro":              NameGemini,
		"imagen-4.0-generate-001": NameGemini,
		"Gemini-Flash":            NameGemini,
	}
	for model, want := range cases {
		name, err := NameFor(model)
		if err != nil {
			t.Fatalf("NameFor(%q) error: %v", model, err)
		}
		if name != want {
			t.Errorf("NameFor(%q) = %q, want %q", model, name, want)
		}
	}
}

func TestNameForUnsupported(t *testing.T) {
	if _, err := NameFor("dall-e-3"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestRegistryFor(t *testing.T) {
	r := NewRegistry()
	xai := &nopGateway{name: NameXAI}
	gemini := &nopGateway{name: NameGemini}
	r.Register(NameXAI, xai)
	r.Register(NameGemini, gemini)

	gw, err := r.For("grok-2-image")
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if gw != xai {
		t.Fatal("expected xai gateway for grok model")
	}

	gw, err = r.For("imagen-4.0-generate-001")
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if gw != gemini {
		t.Fatal("expected gemini gateway for imagen model")
	}
}

func TestRegistryForUnregisteredProvider(t *testing.T) {
	r := NewRegistry()
	if _, err := r.For("grok"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}
