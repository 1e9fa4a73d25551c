package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaloom/internal/config"
	"github.com/KaramelBytes/edaloom/internal/insight"
	"github.com/KaramelBytes/edaloom/internal/pipeline"
	"github.com/KaramelBytes/edaloom/internal/runs"
)

// normalizeProvider maps user spellings onto a registered runtime name.
func normalizeProvider(p string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "", "ollama", "local":
		return ai.ProviderOllama, nil
	case "openai", "openai-compatible", "llamacpp", "lmstudio":
		return ai.ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("invalid provider: %s (use %s)", p, strings.Join(ai.Providers(), " or "))
	}
}

func runtimeConfig(c *cfgpkg.Global) ai.RuntimeConfig {
	return ai.RuntimeConfig{
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		Host:        c.OllamaHost,
		BaseURL:     c.OpenAIBaseURL,
		APIKey:      c.APIKey,
	}
}

// newRuntime builds the configured model runtime. provider overrides the config when set.
func newRuntime(c *cfgpkg.Global, provider string) (ai.Runtime, string, error) {
	if provider == "" {
		provider = c.Provider
	}
	name, err := normalizeProvider(provider)
	if err != nil {
		return nil, "", err
	}
	rt, ok := ai.GetRuntime(name, runtimeConfig(c))
	if !ok {
		return nil, "", fmt.Errorf("provider %s is not registered", name)
	}
	return rt, name, nil
}

// newGenerator returns nil when insights are disabled.
func newGenerator(c *cfgpkg.Global, provider, model string, enabled bool) (*insight.Generator, error) {
	if !enabled {
		return nil, nil
	}
	rt, _, err := newRuntime(c, provider)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = c.Model
	}
	failures := c.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	return insight.New(rt, insight.Options{
		Model:            model,
		MaxTokens:        c.MaxTokens,
		Temperature:      c.Temperature,
		Timeout:          c.InsightsTimeout(),
		PromptTokenLimit: c.PromptTokenLimit,
		Strict:           c.InsightsStrict,
		BreakerFailures:  uint32(failures),
		BreakerCooldown:  time.Duration(c.BreakerCooldownSec) * time.Second,
	}, logger.Named("insights")), nil
}

// openStorage opens the data dir and its run index. Callers close the store.
func openStorage(c *cfgpkg.Global) (*runs.Workspace, *runs.Store, error) {
	ws, err := runs.NewWorkspace(c.DataDir)
	if err != nil {
		return nil, nil, err
	}
	st, err := runs.Open(ws.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open run index: %w", err)
	}
	return ws, st, nil
}

func newPipeline(c *cfgpkg.Global, gen *insight.Generator) (*pipeline.Pipeline, func(), error) {
	ws, st, err := openStorage(c)
	if err != nil {
		return nil, nil, err
	}
	p := &pipeline.Pipeline{Store: st, Workspace: ws, Insights: gen, Logger: logger.Named("pipeline")}
	return p, func() { _ = st.Close() }, nil
}
