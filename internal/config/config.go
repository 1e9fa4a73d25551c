package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Model endpoint
	Provider      string  `mapstructure:"provider" yaml:"provider"`
	Model         string  `mapstructure:"model" yaml:"model"`
	OllamaHost    string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	OpenAIBaseURL string  `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	APIKey        string  `mapstructure:"api_key" yaml:"api_key"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`

	// Insight generation
	InsightsEnabled    bool `mapstructure:"insights_enabled" yaml:"insights_enabled"`
	InsightsStrict     bool `mapstructure:"insights_strict" yaml:"insights_strict"`
	InsightsTimeoutSec int  `mapstructure:"insights_timeout_sec" yaml:"insights_timeout_sec"`
	PromptTokenLimit   int  `mapstructure:"prompt_token_limit" yaml:"prompt_token_limit"`
	BreakerFailures    int  `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldownSec int  `mapstructure:"breaker_cooldown_sec" yaml:"breaker_cooldown_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Storage and web server
	DataDir            string `mapstructure:"data_dir" yaml:"data_dir"`
	ListenAddr         string `mapstructure:"listen_addr" yaml:"listen_addr"`
	UploadLimitMB      int    `mapstructure:"upload_limit_mb" yaml:"upload_limit_mb"`
	RetentionHours     int    `mapstructure:"retention_hours" yaml:"retention_hours"`
	CleanupIntervalMin int    `mapstructure:"cleanup_interval_min" yaml:"cleanup_interval_min"`
}

// HomeDir is ~/.edaloom, the default location of config.yaml and data/.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := HomeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EDALOOM")
	v.AutomaticEnv()

	v.SetDefault("provider", "ollama")
	v.SetDefault("model", "mistral")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("openai_base_url", "http://127.0.0.1:8080/v1")
	v.SetDefault("api_key", "")
	v.SetDefault("max_tokens", 0)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("insights_enabled", true)
	v.SetDefault("insights_strict", false)
	v.SetDefault("insights_timeout_sec", 120)
	v.SetDefault("prompt_token_limit", 6000)
	v.SetDefault("breaker_failures", 3)
	v.SetDefault("breaker_cooldown_sec", 30)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("retry_max_attempts", 2)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Server defaults
	v.SetDefault("listen_addr", "127.0.0.1:7860")
	v.SetDefault("upload_limit_mb", 32)
	v.SetDefault("retention_hours", 168)
	v.SetDefault("cleanup_interval_min", 60)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := HomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file means defaults; a malformed one is an error.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DataDir == "" {
		dir, err := HomeDir()
		if err != nil {
			return nil, err
		}
		c.DataDir = filepath.Join(dir, "data")
	}
	return &c, nil
}

// HTTPTimeout returns the configured model HTTP timeout.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// InsightsTimeout bounds a single insight generation, retries included.
func (c *Global) InsightsTimeout() time.Duration {
	return time.Duration(c.InsightsTimeoutSec) * time.Second
}

// Retention is how long finished runs are kept before pruning.
func (c *Global) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// CleanupInterval is how often the server prunes expired runs.
func (c *Global) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMin) * time.Minute
}

// UploadLimit returns the maximum accepted upload size in bytes.
func (c *Global) UploadLimit() int64 {
	return int64(c.UploadLimitMB) << 20
}
