package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/finsight/internal/core"
	"github.com/spf13/viper"
)

// DefaultSessionSecret is used when SECRET_KEY is unset. Never use it in production.
const DefaultSessionSecret = "CHANGE_THIS_TO_A_RANDOM_VALUE"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Market  MarketConfig  `mapstructure:"market"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Insight InsightConfig `mapstructure:"insight"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	APIKey        string `mapstructure:"api_key"`
	SessionSecret string `mapstructure:"session_secret"`
}

type StorageConfig struct {
	DatabaseURL string        `mapstructure:"database_url"`
	Archive     ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig selects where generated reports are copied.
// An empty Type disables archiving.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MarketConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	HistoryRange   string        `mapstructure:"history_range"`
	DefaultTickers []string      `mapstructure:"default_tickers"`
}

type LLMConfig struct {
	Provider string         `mapstructure:"provider"`
	Claude   ClaudeConfig   `mapstructure:"claude"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// PipelineConfig controls the structured-prediction pipeline.
// It talks to an OpenAI-compatible endpoint and reuses the OpenAI credential.
type PipelineConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// HasCredential reports whether the selected completion provider can be built.
func (c LLMConfig) HasCredential() bool {
	switch c.Provider {
	case "claude":
		return c.Claude.APIKey != ""
	case "ollama":
		return c.Ollama.Endpoint != ""
	default:
		return c.OpenAI.APIKey != ""
	}
}

// InsightConfig holds insight generation settings.
type InsightConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	StoreTTL    time.Duration `mapstructure:"store_ttl"`
	StoreSize   int           `mapstructure:"store_size"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// envBindings maps the plain environment variables the app has always used
// onto config keys.
var envBindings = map[string]string{
	"server.port":           "PORT",
	"server.session_secret": "SECRET_KEY",
	"server.api_key":        "FINSIGHT_API_KEY",
	"storage.database_url":  "DATABASE_URL",
	"llm.provider":          "LLM_PROVIDER",
	"llm.openai.api_key":    "OPENAI_API_KEY",
	"llm.openai.model":      "OPENAI_MODEL",
	"llm.openai.base_url":   "OPENAI_BASE_URL",
	"llm.claude.api_key":    "ANTHROPIC_API_KEY",
	"llm.claude.model":      "ANTHROPIC_MODEL",
	"llm.ollama.endpoint":   "OLLAMA_ENDPOINT",
	"llm.ollama.model":      "OLLAMA_MODEL",
}

// Load reads configuration from defaults, an optional file, a .env file in the
// working directory and the environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          5000,
			Mode:          "release",
			SessionSecret: DefaultSessionSecret,
		},
		Storage: StorageConfig{
			DatabaseURL: "sqlite:///finance.db",
		},
		Market: MarketConfig{
			Timeout:        15 * time.Second,
			HistoryRange:   "1mo",
			DefaultTickers: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"},
		},
		LLM: LLMConfig{
			Provider: "openai",
			Pipeline: PipelineConfig{Enabled: true},
		},
		Insight: InsightConfig{
			Timeout:     30 * time.Second,
			MaxTokens:   1000,
			Temperature: 0.3,
			StoreTTL:    time.Hour,
			StoreSize:   500,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors. A missing LLM credential is
// not an error: insight generation degrades to its heuristic output.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Insight validation
	if c.Insight.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("insight timeout cannot be negative, got %s", c.Insight.Timeout))
	}
	if c.Insight.Temperature < 0 || c.Insight.Temperature > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("temperature must be between 0 and 1, got %f", c.Insight.Temperature))
	}
	if c.Insight.MaxTokens < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_tokens cannot be negative, got %d", c.Insight.MaxTokens))
	}

	switch c.LLM.Provider {
	case "", "openai", "claude", "ollama":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown llm provider: %s", c.LLM.Provider))
	}

	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when archive type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %s", c.Storage.Archive.Type))
	}

	return nil
}
