// Package config provides configuration loading for flowsight.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/flowsight/internal/logging"
)

// Config is the full flowsight configuration.
type Config struct {
	Logging logging.Config `koanf:"logging"`
	Engine  EngineConfig   `koanf:"engine"`
	LLM     LLMConfig      `koanf:"llm"`
}

// EngineConfig tunes the detection pipeline.
type EngineConfig struct {
	// SimilarityThreshold is the minimum pairwise score to join a cluster.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// MinPatternSize is the smallest cluster that survives filtering.
	MinPatternSize int `koanf:"min_pattern_size"`

	// ConfidenceThreshold drops patterns the interpreter scored below it.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// CacheTTL bounds staleness of per-organization cached results.
	// Zero disables result caching.
	CacheTTL Duration `koanf:"cache_ttl"`

	// Bottleneck flagging limits for the stock severity policy. Real
	// severity calibration needs org benchmarks; these are stand-ins.
	BottleneckMaxAvgDays  float64 `koanf:"bottleneck_max_avg_days"`
	BottleneckMaxVariance float64 `koanf:"bottleneck_max_variance"`
}

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	// Provider is "anthropic", "openai", or "disabled".
	Provider   string   `koanf:"provider"`
	APIKey     Secret   `koanf:"api_key"`
	Model      string   `koanf:"model"`
	BaseURL    string   `koanf:"base_url"`
	Timeout    Duration `koanf:"timeout"`
	MaxRetries int      `koanf:"max_retries"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Engine: EngineConfig{
			SimilarityThreshold:   0.68,
			MinPatternSize:        2,
			ConfidenceThreshold:   0.6,
			CacheTTL:              Duration(0),
			BottleneckMaxAvgDays:  30,
			BottleneckMaxVariance: 400,
		},
		LLM: LLMConfig{
			Provider: "disabled",
		},
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Engine.SimilarityThreshold < 0 || c.Engine.SimilarityThreshold > 1 {
		return fmt.Errorf("engine: similarity_threshold must be between 0.0 and 1.0, got %f", c.Engine.SimilarityThreshold)
	}
	if c.Engine.MinPatternSize < 1 {
		return fmt.Errorf("engine: min_pattern_size must be at least 1, got %d", c.Engine.MinPatternSize)
	}
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine: confidence_threshold must be between 0.0 and 1.0, got %f", c.Engine.ConfidenceThreshold)
	}
	switch c.LLM.Provider {
	case "", "disabled":
	case "anthropic", "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm: provider %q requires api_key", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("llm: unknown provider %q", c.LLM.Provider)
	}
	return nil
}
