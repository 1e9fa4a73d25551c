package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "the age column is skewed"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        5,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "mistral", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "the age column is skewed" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" || resp.Usage.TotalTokens != 17 {
		t.Fatalf("expected request id and usage, got %+v", resp)
	}
	if captured.Stream || captured.Model != "mistral" || captured.Options["num_predict"] != float64(16) {
		t.Fatalf("unexpected request: %+v", captured)
	}
}

func TestOllamaGenerateBadRequest(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad request"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral", Messages: []Message{{Role: "user", Content: "hi"}}})
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("expected BadRequestError, got %T: %v", err, err)
	}
}

func TestOllamaModelNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'mistral' not found, try pulling it first"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 3, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral", Messages: []Message{{Role: "user", Content: "hi"}}})
	var nf *ModelNotFoundError
	if !errors.As(err, &nf) || nf.Model != "mistral" {
		t.Fatalf("expected ModelNotFoundError, got %T: %v", err, err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls=%d want 1", n)
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	_, err = c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil || err.Error() != "model cannot be empty" {
		t.Fatalf("expected 'model cannot be empty' error, got: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := newIPv4Server(t, http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOllamaClient(url, time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "mistral:latest", "size": 4109865159, "modified_at": "2024-05-01T10:00:00Z"},
				{"name": "llama3:8b", "size": 1},
			},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].Name != "mistral:latest" || models[0].Size != 4109865159 {
		t.Fatalf("unexpected models: %+v", models)
	}
	if !HasModel(models, "mistral") || HasModel(models, "phi3") {
		t.Fatalf("HasModel mismatch")
	}
}
