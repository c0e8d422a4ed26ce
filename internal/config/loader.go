package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	envPrefix         = "FLOWSIGHT_"
)

// Load builds configuration from defaults, an optional YAML file, and
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (FLOWSIGHT_LLM_PROVIDER, FLOWSIGHT_ENGINE_MIN_PATTERN_SIZE, ...)
//  2. YAML config file, when configPath is non-empty
//  3. Hardcoded defaults
//
// Environment variables map through the prefix and underscore separator:
//
//	FLOWSIGHT_LOGGING_LEVEL        -> logging.level
//	FLOWSIGHT_LLM_API_KEY          -> llm.api_key
//	FLOWSIGHT_ENGINE_CACHE_TTL     -> engine.cache_ttl
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if configPath != "" {
		data, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envTransform maps FLOWSIGHT_SECTION_FIELD_NAME to section.field_name. Only
// the first underscore separates the section; the rest stay in the key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile reads a config file, bounding its size to keep a bad path
// from exhausting memory.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}
