package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	retry      retryPolicy
}

// NewOllamaClient creates a new client targeting the given host (e.g., http://127.0.0.1:11434).
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		host:       strings.TrimRight(host, "/"),
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

// Host returns the base URL the client talks to.
func (c *OllamaClient) Host() string { return c.host }

// Structures aligned with Ollama /api/chat (non-streaming)
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}
type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		ModifiedAt string `json:"modified_at"`
	} `json:"models"`
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	messages := make([]ollamaChatMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = ollamaChatMessage(msg)
	}
	oreq := ollamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{},
	}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	payload, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.host + "/api/chat"
	var out *GenerateResponse
	err = c.retry.do(ctx, func() (time.Duration, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return 0, permanent(fmt.Errorf("build request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			uerr := &UnreachableError{Host: c.host, Err: err}
			if isRetryableNetErr(err) {
				return 0, uerr
			}
			return 0, permanent(uerr)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			// Ollama answers 404 only for a model that has not been pulled
			if resp.StatusCode == http.StatusNotFound {
				return 0, permanent(&ModelNotFoundError{APIError: apiErr, Model: req.Model})
			}
			classified := classifyAPIError(apiErr, resp, req.Model)
			if retryableStatus(resp.StatusCode) {
				return 0, classified
			}
			return 0, permanent(classified)
		}
		var oresp ollamaChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
			return 0, permanent(fmt.Errorf("decode response: %w", err))
		}
		out = &GenerateResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}},
			Usage: Usage{
				PromptTokens:     oresp.PromptEvalCount,
				CompletionTokens: oresp.EvalCount,
				TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
			},
			RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListModels queries /api/tags for the locally installed models.
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(readAPIError(resp), resp, "")
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	out := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, ModelInfo{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt})
	}
	return out, nil
}

// HasModel reports whether name (with or without a ":latest" tag) is installed.
func HasModel(models []ModelInfo, name string) bool {
	for _, m := range models {
		if m.Name == name || strings.TrimSuffix(m.Name, ":latest") == strings.TrimSuffix(name, ":latest") {
			return true
		}
	}
	return false
}
