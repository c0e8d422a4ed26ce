// Package interpret turns cluster summaries into named patterns by way of an
// external text-generation collaborator, with a deterministic statistical
// fallback for every failure mode. It also produces cross-pattern insights.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default client configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 2048
	defaultTimeout          = 60 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute for both APIs.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// ErrUnavailable is returned by the disabled client. The interpreter treats
// it like any other collaborator failure and falls back.
var ErrUnavailable = errors.New("text-generation collaborator not configured")

// LLMClient is the text-generation collaborator. Implementations handle
// retries and rate limiting internally; responses carry no JSON-validity
// guarantee.
type LLMClient interface {
	// Complete generates a completion from the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a collaborator client.
type Config struct {
	// Provider is "anthropic", "openai", or "disabled".
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// NewLLMClient creates a collaborator client from configuration. The
// "disabled" provider (or an empty one) yields a client that always fails,
// which pushes every pattern through the deterministic fallback.
func NewLLMClient(cfg Config) (LLMClient, error) {
	switch cfg.Provider {
	case "", "disabled":
		return &disabledClient{}, nil
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// disabledClient is the no-collaborator implementation.
type disabledClient struct{}

// Complete always reports the collaborator as unavailable.
func (d *disabledClient) Complete(_ context.Context, _ string) (string, error) {
	return "", ErrUnavailable
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (r *retryableError) Error() string {
	return r.err.Error()
}

func (r *retryableError) Unwrap() error {
	return r.err
}

// isRetryableError reports whether the error is transient.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
