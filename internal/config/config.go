package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Blob     BlobConfig     `mapstructure:"blob" validate:"required"`
}

// ServerConfig contains all accept-API server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all task-store related settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// QueueConfig contains the work-queue broker settings shared by the
// publisher (accept API) and the consumer (worker).
type QueueConfig struct {
	RedisAddr   string `mapstructure:"redis_addr" validate:"required"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=0"`
}

// LLMConfig contains the research-provider settings. The API key itself is
// not configured here; it is resolved at runtime through the secrets
// provider named by APIKeyEnv so the credential never lands in config files.
type LLMConfig struct {
	APIKeyEnv string `mapstructure:"api_key_env" validate:"required"`
	Model     string `mapstructure:"model" validate:"required"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"required,gt=0"`
}

// BlobConfig contains artifact-storage settings.
type BlobConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}
