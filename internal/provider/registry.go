package provider

import (
	"fmt"
	"strings"
	"sync"

	"genstudio/internal/domain"
)

// Provider names used for registration and routing.
const (
	NameXAI    = "xai"
	NameGemini = "gemini"
)

// Registry routes model identifiers to the gateway that serves them.
// grok* models go to xAI; gemini* and imagen* models go to Gemini.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(name string, gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[name] = gw
}

// NameFor resolves a model identifier to a provider name.
func NameFor(model string) (string, error) {
	model = strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(model, "grok"):
		return NameXAI, nil
	case strings.HasPrefix(model, "gemini"), strings.HasPrefix(model, "imagen"):
		return NameGemini, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, model)
	}
}

// For returns the gateway registered for the given model identifier.
func (r *Registry) For(model string) (Gateway, error) {
	name, err := NameFor(model)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q not configured", domain.ErrUnsupportedModel, name)
	}
	return gw, nil
}
