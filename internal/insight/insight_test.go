package insight

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KaramelBytes/edaloom/internal/ai"
)

type fakeRuntime struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error)
}

func (f *fakeRuntime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func reply(text string) *ai.GenerateResponse {
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: text}}}}
}

func TestGenerateSendsPromptAndReturnsText(t *testing.T) {
	var got ai.GenerateRequest
	rt := &fakeRuntime{fn: func(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		got = req
		return reply("  Ages cluster around 30.\n"), nil
	}}
	g := New(rt, Options{}, nil)
	res, err := g.Generate(context.Background(), "count 4\nmean 30")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Ages cluster around 30." || res.Fallback {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.Model != "mistral" || len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if want := PromptPrefix + "count 4\nmean 30"; got.Messages[0].Content != want {
		t.Fatalf("prompt=%q want %q", got.Messages[0].Content, want)
	}
}

func TestGenerateFallsBackOnError(t *testing.T) {
	rt := &fakeRuntime{fn: func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return nil, &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("connection refused")}
	}}
	res, err := New(rt, Options{}, nil).Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("non-strict mode should not fail: %v", err)
	}
	if !res.Fallback || !IsFallback(res.Text) || !strings.Contains(res.Text, "not reachable") {
		t.Fatalf("unexpected fallback: %+v", res)
	}
}

func TestGenerateStrictPropagates(t *testing.T) {
	rt := &fakeRuntime{fn: func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return reply("   "), nil
	}}
	_, err := New(rt, Options{Strict: true}, nil).Generate(context.Background(), "x")
	if !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	rt := &fakeRuntime{fn: func(ctx context.Context, _ ai.GenerateRequest) (*ai.GenerateResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	start := time.Now()
	res, err := New(rt, Options{Timeout: 50 * time.Millisecond}, nil).Generate(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
	if !strings.Contains(res.Text, "did not answer in time") {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	rt := &fakeRuntime{fn: func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return nil, &ai.ServerError{APIError: &ai.APIError{StatusCode: 500}}
	}}
	g := New(rt, Options{BreakerFailures: 2, BreakerCooldown: time.Hour}, nil)
	for i := 0; i < 2; i++ {
		if _, err := g.Generate(context.Background(), "x"); err != nil {
			t.Fatal(err)
		}
	}
	if g.State() != "open" {
		t.Fatalf("state=%s want open", g.State())
	}
	res, _ := g.Generate(context.Background(), "x")
	if n := rt.calls.Load(); n != 2 {
		t.Fatalf("runtime called %d times; open breaker should short-circuit", n)
	}
	if !strings.Contains(res.Text, "paused") {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestBuildPromptTruncates(t *testing.T) {
	long := strings.Repeat("abcd", 1000)
	p := BuildPrompt(long, 100)
	if !strings.HasPrefix(p, PromptPrefix) {
		t.Fatal("prefix missing")
	}
	if len(p) >= len(PromptPrefix)+len(long) {
		t.Fatalf("prompt not truncated: %d chars", len(p))
	}
	if BuildPrompt("short", 0) != PromptPrefix+"short" {
		t.Fatal("limit 0 should not truncate")
	}
}
