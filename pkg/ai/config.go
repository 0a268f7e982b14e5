package ai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied to models that leave the field unset.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
)

// ModelConfig defines the configuration for a single LLM.
type ModelConfig struct {
	Name        string  `json:"name" yaml:"name"`                             // e.g., "clara-openai"
	Provider    string  `json:"provider" yaml:"provider"`                     // "openai", "google", "anthropic"
	APIKey      string  `json:"api_key" yaml:"api_key"`                       // "env:OPENAI_API_KEY" or direct key
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"` // Optional: for custom endpoints
	ModelName   string  `json:"model_name" yaml:"model_name"`                 // The provider model ID (e.g., "gpt-4o-mini")
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`                 // Max output tokens
	Temperature float64 `json:"temperature" yaml:"temperature"`               // Creativity
}

// Config holds the AI configuration.
type Config struct {
	DefaultModel string        `json:"default_model" yaml:"default_model"`
	Models       []ModelConfig `json:"models" yaml:"models"`
}

// DefaultConfig is a single gpt-4o-mini model served through OpenAI.
func DefaultConfig() Config {
	return Config{
		DefaultModel: "clara",
		Models: []ModelConfig{{
			Name:        "clara",
			Provider:    "openai",
			APIKey:      "env:OPENAI_API_KEY",
			ModelName:   "gpt-4o-mini",
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		}},
	}
}

// LoadConfig reads and parses the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields. An empty model list falls back to DefaultConfig.
func (c *Config) ApplyDefaults() {
	if len(c.Models) == 0 {
		def := DefaultConfig()
		c.Models = def.Models
		if c.DefaultModel == "" {
			c.DefaultModel = def.DefaultModel
		}
	}
	if c.DefaultModel == "" {
		c.DefaultModel = c.Models[0].Name
	}
	for i := range c.Models {
		if c.Models[i].MaxTokens <= 0 {
			c.Models[i].MaxTokens = DefaultMaxTokens
		}
		if c.Models[i].Temperature == 0 {
			c.Models[i].Temperature = DefaultTemperature
		}
	}
}

// Validate checks that the default model exists and model names are unique.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model entry without name")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model name '%s'", m.Name)
		}
		seen[m.Name] = true
	}
	if !seen[c.DefaultModel] {
		return fmt.Errorf("default model '%s' not found in configuration", c.DefaultModel)
	}
	return nil
}

// Model returns the configuration of the named model.
func (c *Config) Model(name string) (*ModelConfig, bool) {
	for i := range c.Models {
		if c.Models[i].Name == name {
			return &c.Models[i], true
		}
	}
	return nil, false
}

// ResolveAPIKey 解析 API 密钥。
// 如果密钥以 "env:" 开头，则从环境变量中获取实际值。
func ResolveAPIKey(key string) string {
	if strings.HasPrefix(key, "env:") {
		return os.Getenv(strings.TrimPrefix(key, "env:"))
	}
	return key
}
