// Package insight asks a language model to comment on a dataset summary.
//
// A Generator bounds every call with a timeout, retries inside the runtime,
// and a circuit breaker shared by all callers. When the model cannot answer
// the Generator returns a fallback text instead of an error unless Strict is set.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/ai"
	"github.com/KaramelBytes/edaloom/internal/logging"
	"github.com/KaramelBytes/edaloom/internal/utils"
)

const (
	// PromptPrefix leads every prompt; the describe() table follows it.
	PromptPrefix = "Analyze the dataset summary and provide insights:\n\n"
	// DisabledText stands in for insights when a run opts out.
	DisabledText = "AI insights disabled."
	fallbackLead = "AI insights unavailable: "
)

// FallbackText is the insight text used when the model could not answer.
func FallbackText(reason string) string { return fallbackLead + reason }

// IsFallback reports whether text was produced by FallbackText.
func IsFallback(text string) bool { return strings.HasPrefix(text, fallbackLead) }

// Options configures a Generator.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds one Generate call including retries. Zero means 120s.
	Timeout time.Duration
	// PromptTokenLimit truncates long summaries. Zero or less disables it.
	PromptTokenLimit int
	// Strict returns errors instead of the fallback text.
	Strict bool
	// BreakerFailures consecutive failures open the breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Result is one insight outcome.
type Result struct {
	Text     string
	Fallback bool
	// Err is the cause of a fallback.
	Err      error
	Model    string
	Duration time.Duration
}

// Generator produces insight text for summaries. It is safe for concurrent use.
type Generator struct {
	rt  ai.Runtime
	opt Options
	cb  *gobreaker.CircuitBreaker
	log *zap.Logger
}

// New builds a Generator around rt.
func New(rt ai.Runtime, opt Options, log *zap.Logger) *Generator {
	log = logging.OrNop(log)
	if opt.Model == "" {
		opt.Model = "mistral"
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 120 * time.Second
	}
	if opt.BreakerFailures == 0 {
		opt.BreakerFailures = 3
	}
	if opt.BreakerCooldown <= 0 {
		opt.BreakerCooldown = 30 * time.Second
	}
	g := &Generator{rt: rt, opt: opt, log: log}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "insights",
		MaxRequests: 1,
		Timeout:     opt.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opt.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("insight circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		// a caller giving up is not a fault of the model server
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return g
}

// Model returns the model id used for requests.
func (g *Generator) Model() string { return g.opt.Model }

// State reports the breaker state ("closed", "half-open" or "open").
func (g *Generator) State() string { return g.cb.State().String() }

// BuildPrompt prefixes the describe() text and caps it at limit tokens.
func BuildPrompt(describe string, limit int) string {
	body := describe
	if limit > 0 {
		budget := limit - utils.CountTokens(PromptPrefix)
		if budget < 1 {
			budget = 1
		}
		body = utils.TruncateToTokenLimit(describe, budget)
	}
	return PromptPrefix + body
}

// Generate asks the model for insights on describe. In non-strict mode the
// returned error is always nil and failures surface as Result.Fallback.
func (g *Generator) Generate(ctx context.Context, describe string) (Result, error) {
	start := time.Now()
	res := Result{Model: g.opt.Model}
	req := ai.GenerateRequest{
		Model:       g.opt.Model,
		Messages:    []ai.Message{{Role: "user", Content: BuildPrompt(describe, g.opt.PromptTokenLimit)}},
		MaxTokens:   g.opt.MaxTokens,
		Temperature: g.opt.Temperature,
	}

	out, err := g.cb.Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, g.opt.Timeout)
		defer cancel()
		resp, err := g.rt.Generate(cctx, req)
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return nil, ai.ErrEmptyResponse
		}
		return text, nil
	})
	res.Duration = time.Since(start)
	if err == nil {
		res.Text = out.(string)
		g.log.Debug("insights generated", zap.String("model", g.opt.Model), zap.Duration("took", res.Duration))
		return res, nil
	}

	g.log.Warn("insight generation failed",
		zap.String("model", g.opt.Model), zap.Duration("took", res.Duration), zap.Error(err))
	if g.opt.Strict {
		return res, fmt.Errorf("generate insights: %w", err)
	}
	res.Fallback = true
	res.Err = err
	res.Text = FallbackText(Reason(err))
	return res, nil
}

// Reason extends ai.Reason with the breaker's own errors.
func Reason(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "the model server failed repeatedly and is paused for a while"
	}
	return ai.Reason(err)
}
