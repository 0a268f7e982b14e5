// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/betaskintech/clara/pkg/ai"
	"github.com/betaskintech/clara/pkg/memory"
)

const defaultListenAddr = ":3000"

// Config is the root of clara.yaml.
type Config struct {
	Server        ServerConfig           `yaml:"server"`
	Log           LogConfig              `yaml:"log"`
	AI            ai.Config              `yaml:"ai"`
	Assistant     AssistantConfig        `yaml:"assistant"`
	Memory        MemoryConfig           `yaml:"memory"`
	Transcription ai.TranscriptionConfig `yaml:"transcription"`
	Avatar        AvatarConfig           `yaml:"avatar"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"` // base64 audio counts against this
}

// LogConfig selects the log level and output format (text|json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AssistantConfig overrides the built-in persona.
type AssistantConfig struct {
	SystemPrompt     string `yaml:"system_prompt"`
	SystemPromptFile string `yaml:"system_prompt_file"`
}

// MemoryConfig tunes the conversational memory.
type MemoryConfig struct {
	MaxHistoryTurns int           `yaml:"max_history_turns"` // 0 disables history
	IdleThreshold   time.Duration `yaml:"idle_threshold"`
	SweepInterval   time.Duration `yaml:"sweep_interval"` // 0 disables the janitor
}

// AvatarConfig configures the HeyGen token client.
type AvatarConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Server: ServerConfig{
			Addr:            defaultListenAddr,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    25 << 20,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Memory: MemoryConfig{
			MaxHistoryTurns: memory.DefaultMaxHistoryTurns,
			IdleThreshold:   memory.DefaultIdleThreshold,
			SweepInterval:   memory.DefaultSweepInterval,
		},
		Transcription: ai.TranscriptionConfig{APIKey: "env:OPENAI_API_KEY"},
		Avatar:        AvatarConfig{APIKey: "env:HEYGEN_API_KEY"},
	}
	cfg.AI.ApplyDefaults()
	return cfg
}

// Load reads path on top of Default, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.AI = ai.Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.AI.ApplyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 读取环境变量覆盖项，空值不覆盖。
// OPENAI_API_KEY 同时补齐未配置密钥的 openai 模型。
func (c *Config) applyEnv() {
	if addr := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); addr != "" {
		c.Server.Addr = addr
	}
	if key := strings.TrimSpace(os.Getenv("HEYGEN_API_KEY")); key != "" {
		c.Avatar.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		c.Transcription.APIKey = key
		for i := range c.AI.Models {
			if c.AI.Models[i].Provider == "openai" && c.AI.Models[i].APIKey == "" {
				c.AI.Models[i].APIKey = key
			}
		}
	}
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Memory.IdleThreshold <= 0 {
		errs = append(errs, errors.New("memory.idle_threshold must be positive"))
	}
	if c.Memory.MaxHistoryTurns < 0 {
		errs = append(errs, errors.New("memory.max_history_turns must not be negative"))
	}
	if c.Memory.SweepInterval < 0 {
		errs = append(errs, errors.New("memory.sweep_interval must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log.format '%s'", c.Log.Format))
	}
	if err := c.AI.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SystemPrompt returns the configured persona, falling back to the built-in one.
func (c *Config) SystemPrompt() (string, error) {
	return ai.LoadSystemPrompt(c.Assistant.SystemPrompt, c.Assistant.SystemPromptFile)
}
