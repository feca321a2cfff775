package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// AIProvider selects the parsing strategy: "anthropic", "openai"
	// or "ab" (randomized A/B with mutual fallback).
	AIProvider      string `mapstructure:"AI_PROVIDER"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel     string `mapstructure:"OPENAI_MODEL"`

	// StorageBackend is "memory" (development) or "gcs".
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	StorageBucket  string `mapstructure:"STORAGE_BUCKET"`
	URLSigningKey  string `mapstructure:"URL_SIGNING_KEY"`
	PublicBaseURL  string `mapstructure:"PUBLIC_BASE_URL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AI_PROVIDER", "anthropic")
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("STORAGE_BACKEND", "memory")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AI_PROVIDER")
	v.BindEnv("ANTHROPIC_API_KEY")
	v.BindEnv("ANTHROPIC_MODEL")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("OPENAI_MODEL")
	v.BindEnv("STORAGE_BACKEND")
	v.BindEnv("STORAGE_BUCKET")
	v.BindEnv("URL_SIGNING_KEY")
	v.BindEnv("PUBLIC_BASE_URL")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The selected
// AI provider must have its API key, production requires a real URL
// signing key, and the GCS backend needs a bucket.
func (c *Config) Validate() error {
	switch c.AIProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is \"anthropic\"")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is \"openai\"")
		}
	case "ab":
		if c.AnthropicAPIKey == "" || c.OpenAIAPIKey == "" {
			return fmt.Errorf("AI_PROVIDER \"ab\" requires both ANTHROPIC_API_KEY and OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be \"anthropic\", \"openai\" or \"ab\", got %q", c.AIProvider)
	}

	switch c.StorageBackend {
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("STORAGE_BACKEND \"memory\" is not allowed in production")
		}
	case "gcs":
		if c.StorageBucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required when STORAGE_BACKEND is \"gcs\"")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"memory\" or \"gcs\", got %q", c.StorageBackend)
	}

	if c.IsProduction() {
		if c.URLSigningKey == "" {
			return fmt.Errorf("URL_SIGNING_KEY is required in production")
		}
		if len(c.URLSigningKey) < 32 {
			return fmt.Errorf("URL_SIGNING_KEY must be at least 32 characters, got %d", len(c.URLSigningKey))
		}
	}

	return nil
}
