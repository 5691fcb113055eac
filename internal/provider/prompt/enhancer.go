package prompt

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Enhancer rewrites a terse user prompt into a richer generation prompt.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

const (
	xaiProviderName    = "xai"
	geminiProviderName = "gemini"
	staticProviderName = "static"
)

const systemPrompt = `You are an expert AI image generation prompt engineer. Your task is to enhance user prompts to produce better, more detailed results.

Guidelines:
1. Expand vague descriptions into specific, vivid details
2. Add relevant artistic style keywords (lighting, composition, atmosphere)
3. Include technical quality terms (8K, detailed, professional)
4. Maintain the user's original intent and core concept
5. Keep the enhanced prompt concise but comprehensive (under 200 words)
6. Don't add negative prompts or instructions - just the positive description
7. Don't use markdown or formatting - just plain text`

// StaticEnhancer produces a deterministic local enhancement when no remote
// model is reachable. It title-cases the subject and appends stock quality
// descriptors the remote enhancers would otherwise supply.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

var staticDescriptors = []string{
	"highly detailed",
	"professional quality",
	"dramatic lighting",
	"8K resolution",
}

func (s *StaticEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}
	subject := cases.Title(language.Und).String(prompt[:1]) + prompt[1:]
	lowered := strings.ToLower(prompt)
	parts := []string{subject}
	for _, d := range staticDescriptors {
		if !strings.Contains(lowered, d) {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, ", "), nil
}

var (
	enhancedPrefixRe = regexp.MustCompile(`(?i)^(enhanced prompt:|here's the enhanced prompt:)\s*`)
	surroundQuotesRe = regexp.MustCompile(`^["']|["']$`)
)

// cleanEnhanced strips quoting and boilerplate prefixes remote models tend
// to wrap their answer in.
func cleanEnhanced(raw string) string {
	text := strings.TrimSpace(raw)
	text = surroundQuotesRe.ReplaceAllString(text, "")
	text = enhancedPrefixRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

var _ Enhancer = (*StaticEnhancer)(nil)
