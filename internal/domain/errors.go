package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrMissingAPIKey        = errors.New("api key is required")
	ErrMissingPrompt        = errors.New("prompt is required")
	ErrUnsupportedModel     = errors.New("unsupported model")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrIllegalTransition    = errors.New("illegal status transition")
	ErrEmptyResult          = errors.New("provider returned no media")
	ErrProviderFailure      = errors.New("provider failure")
)
