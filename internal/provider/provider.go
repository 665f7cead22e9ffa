// Package provider reaches the external generative model through one narrow
// contract: render JSON from a prompt pair. Everything above it treats any
// provider failure identically, so implementations stay deliberately thin.
package provider

import (
	"context"
	"errors"
	"strings"
	"time"
)

// JSONProvider generates a JSON document from a system/user prompt pair.
// templateKey identifies which draft is being generated and may be used for
// per-template routing or accounting.
type JSONProvider interface {
	GenerateJSON(ctx context.Context, templateKey, systemPrompt, userPrompt string) (string, error)
}

// ErrLocalMode is returned by the local provider, which never generates:
// callers running in local mode are expected to use their deterministic
// fallback instead of calling out.
var ErrLocalMode = errors.New("local provider does not generate; use the deterministic fallback")

// Local is the no-op provider wired when generation is disabled.
type Local struct{}

// GenerateJSON always fails with ErrLocalMode.
func (Local) GenerateJSON(context.Context, string, string, string) (string, error) {
	return "", ErrLocalMode
}

// Options configures the external provider endpoint.
type Options struct {
	Mode      string
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// IsLocal reports whether a configured mode resolves to the no-op local
// provider. Unknown modes are local: fail toward the deterministic path,
// never toward an unconfigured network call. Callers deciding whether to
// skip generation entirely must use this, not their own mode switch.
func IsLocal(mode string) bool {
	switch strings.ToLower(mode) {
	case "openai", "azureopenai":
		return false
	default:
		return true
	}
}

// New selects a provider by configured mode.
func New(opts Options) JSONProvider {
	if IsLocal(opts.Mode) {
		return Local{}
	}
	return NewOpenAI(opts)
}
