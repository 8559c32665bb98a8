package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optionally a
// config file. Environment variables take precedence over values from the
// config file. Returns a populated Config struct or an error if loading or
// validation fails.
//
// Environment variables use the RESEARCH_ prefix with underscores for
// nesting, e.g. RESEARCH_SERVER_PORT, RESEARCH_DATABASE_URL.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory or /etc/research-api.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/research-api")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults still apply.
	}

	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values so a minimal environment can boot
// against local infrastructure.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	// Registered empty so AutomaticEnv can populate it; validation rejects
	// a missing URL.
	v.SetDefault("database.url", "")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("llm.api_key_env", "ANTHROPIC_API_KEY")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("blob.root", "/var/lib/research-api/artifacts")
}
