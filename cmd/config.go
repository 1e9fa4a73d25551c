package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edaloom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set edaloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("provider: %s\n", cfg.Provider)
		fmt.Printf("model: %s\n", cfg.Model)
		fmt.Printf("ollama_host: %s\n", cfg.OllamaHost)
		fmt.Printf("openai_base_url: %s\n", cfg.OpenAIBaseURL)
		fmt.Printf("api_key: %s\n", mask(cfg.APIKey))
		fmt.Printf("max_tokens: %d\n", cfg.MaxTokens)
		fmt.Printf("temperature: %.3f\n", cfg.Temperature)
		fmt.Printf("insights_enabled: %t\n", cfg.InsightsEnabled)
		fmt.Printf("insights_strict: %t\n", cfg.InsightsStrict)
		fmt.Printf("insights_timeout_sec: %d\n", cfg.InsightsTimeoutSec)
		fmt.Printf("prompt_token_limit: %d\n", cfg.PromptTokenLimit)
		fmt.Printf("breaker_failures: %d\n", cfg.BreakerFailures)
		fmt.Printf("breaker_cooldown_sec: %d\n", cfg.BreakerCooldownSec)
		fmt.Printf("http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Printf("retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Printf("retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Printf("retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Printf("data_dir: %s\n", cfg.DataDir)
		fmt.Printf("listen_addr: %s\n", cfg.ListenAddr)
		fmt.Printf("upload_limit_mb: %d\n", cfg.UploadLimitMB)
		fmt.Printf("retention_hours: %d\n", cfg.RetentionHours)
		fmt.Printf("cleanup_interval_min: %d\n", cfg.CleanupIntervalMin)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func(floor int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < floor {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "provider":
		c.Provider, err = normalizeProvider(val)
	case "model":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("model cannot be empty")
		}
		c.Model = val
	case "ollama_host":
		c.OllamaHost = strings.TrimRight(val, "/")
	case "openai_base_url":
		c.OpenAIBaseURL = strings.TrimRight(val, "/")
	case "api_key":
		c.APIKey = val
	case "max_tokens":
		c.MaxTokens, err = atoi(0)
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "insights_enabled", "insights_strict":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "insights_enabled" {
			c.InsightsEnabled = b
		} else {
			c.InsightsStrict = b
		}
	case "insights_timeout_sec":
		c.InsightsTimeoutSec, err = atoi(1)
	case "prompt_token_limit":
		c.PromptTokenLimit, err = atoi(0)
	case "breaker_failures":
		c.BreakerFailures, err = atoi(1)
	case "breaker_cooldown_sec":
		c.BreakerCooldownSec, err = atoi(1)
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(0)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(0)
	case "data_dir":
		c.DataDir = val
	case "listen_addr":
		c.ListenAddr = val
	case "upload_limit_mb":
		c.UploadLimitMB, err = atoi(1)
	case "retention_hours":
		c.RetentionHours, err = atoi(0)
	case "cleanup_interval_min":
		c.CleanupIntervalMin, err = atoi(0)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
