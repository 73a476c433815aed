// Package config loads localchat settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults used when neither the config file nor the environment set a value.
const (
	DefaultListenAddr  = ":3000"
	DefaultBaseURL     = "http://localhost:8000"
	DefaultModel       = "gpt-oss-20b"
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
	DefaultStoreDriver = "memory"
	DefaultRedisURL    = "redis://localhost:6379/0"
	DefaultSessionTTL  = 7 * 24 * time.Hour
)

// Config is the full localchat configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Inference InferenceConfig `toml:"inference"`
	Store     StoreConfig     `toml:"store"`
	Session   SessionConfig   `toml:"session"`
	Log       LogConfig       `toml:"log"`
	Models    []ModelConfig   `toml:"models"`
}

// ServerConfig configures the chat proxy HTTP server.
type ServerConfig struct {
	ListenAddr string `toml:"listen"`
}

// InferenceConfig configures the upstream OpenAI-compatible endpoint.
type InferenceConfig struct {
	BaseURL     string   `toml:"base_url"`
	Model       string   `toml:"model"`
	MaxTokens   int      `toml:"max_tokens"`
	Temperature float64  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"` // zero leaves the transport default in place
}

// StoreConfig selects the workspace record store backend.
type StoreConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `toml:"dsn"`
}

// SessionConfig configures the Redis-backed identity provider.
type SessionConfig struct {
	RedisURL     string   `toml:"redis_url"`
	TTL          Duration `toml:"ttl"`
	SecureCookie bool     `toml:"secure_cookie"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Debug  bool   `toml:"debug"`
	Format string `toml:"format"`
}

// ModelConfig describes a model users may bind a workspace to.
type ModelConfig struct {
	ID            string `toml:"id" json:"id"`
	Name          string `toml:"name" json:"name"`
	Description   string `toml:"description" json:"description"`
	Parameters    string `toml:"parameters" json:"parameters"`
	ContextLength string `toml:"context_length" json:"contextLength"`
}

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{ListenAddr: DefaultListenAddr},
		Inference: InferenceConfig{
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Store:   StoreConfig{Driver: DefaultStoreDriver},
		Session: SessionConfig{RedisURL: DefaultRedisURL, TTL: Duration{DefaultSessionTTL}},
		Log:     LogConfig{Format: "console"},
		Models: []ModelConfig{{
			ID:            DefaultModel,
			Name:          "GPT-OSS 20B",
			Description:   "A 20 billion parameter open-source language model running locally on your machine",
			Parameters:    "20B",
			ContextLength: "4096 tokens",
		}},
	}
}

// Load reads the TOML file at path (if path is non-empty and exists) over the
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("could not decode config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c Config) Validate() error {
	if c.Inference.BaseURL == "" {
		return errors.New("inference.base_url must not be empty")
	}
	if c.Inference.MaxTokens <= 0 {
		return fmt.Errorf("inference.max_tokens must be positive, got %d", c.Inference.MaxTokens)
	}
	if c.Inference.Temperature < 0 || c.Inference.Temperature > 2 {
		return fmt.Errorf("inference.temperature must be within [0, 2], got %v", c.Inference.Temperature)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// Model returns the catalogue entry with the given id.
func (c Config) Model(id string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelConfig{}, false
}

func applyEnv(cfg *Config) {
	cfg.Server.ListenAddr = getenv("LOCALCHAT_LISTEN", cfg.Server.ListenAddr)
	cfg.Inference.BaseURL = getenv("LLAMA_BASE_URL", cfg.Inference.BaseURL)
	cfg.Inference.Model = getenv("LLAMA_MODEL", cfg.Inference.Model)
	cfg.Inference.MaxTokens = getenvInt("LLAMA_MAX_TOKENS", cfg.Inference.MaxTokens)
	cfg.Store.Driver = getenv("LOCALCHAT_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getenv("DATABASE_URL", cfg.Store.DSN)
	cfg.Session.RedisURL = getenv("REDIS_URL", cfg.Session.RedisURL)
	cfg.Log.Format = getenv("LOCALCHAT_LOG_FORMAT", cfg.Log.Format)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
