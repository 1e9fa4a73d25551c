package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	errModelEmpty    = errors.New("model cannot be empty")
	errMessagesEmpty = errors.New("messages cannot be empty")
	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// APIError represents a structured error response from a model endpoint.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("api error: status=%d", e.StatusCode)
	if e.Code != "" {
		s += " code=" + e.Code
	}
	if e.RequestID != "" {
		s += " request_id=" + e.RequestID
	}
	if e.Message != "" {
		s += " message=" + e.Message
	}
	return s
}

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ModelNotFoundError indicates the requested model is not installed or served.
type ModelNotFoundError struct {
	*APIError
	Model string
}

func (e *ModelNotFoundError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("model %q not found: %s", e.Model, e.APIError.Error())
	}
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 4xx request problem (e.g., 400 validation).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// ServerError indicates 5xx errors from the model server.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string {
	return fmt.Sprintf("model server error: %s", e.APIError.Error())
}

// UnreachableError indicates the model server is not reachable (e.g., local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Reason condenses err into a short phrase suitable for end users.
func Reason(err error) string {
	var (
		unreach  *UnreachableError
		notFound *ModelNotFoundError
		auth     *AuthError
		rate     *RateLimitError
		server   *ServerError
		bad      *BadRequestError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "the model did not answer in time"
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	case errors.As(err, &unreach):
		return "the model server is not reachable"
	case errors.As(err, &notFound):
		if notFound.Model != "" {
			return fmt.Sprintf("model %q is not available", notFound.Model)
		}
		return "the model is not available"
	case errors.As(err, &auth):
		return "the model server rejected the credentials"
	case errors.As(err, &rate):
		return "the model server is rate limiting requests"
	case errors.As(err, &server):
		return "the model server returned an error"
	case errors.As(err, &bad):
		return "the model server rejected the request"
	case errors.Is(err, ErrEmptyResponse):
		return "the model returned an empty response"
	}
	return err.Error()
}
