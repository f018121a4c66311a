package providers

import (
	"context"
)

// Config represents one request to a vision LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Images holds base64-encoded JPEG payloads attached to the prompt
	Images []string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
