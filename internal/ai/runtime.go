package ai

import "context"

// Runtime is a chat-completion backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// ModelLister is implemented by runtimes that can enumerate installed models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Provider identifiers accepted by config and flags.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the first choice's content, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ModelInfo describes one locally installed model.
type ModelInfo struct {
	Name       string
	Size       int64
	ModifiedAt string
}

func validate(req GenerateRequest) error {
	if req.Model == "" {
		return errModelEmpty
	}
	if len(req.Messages) == 0 {
		return errMessagesEmpty
	}
	return nil
}
