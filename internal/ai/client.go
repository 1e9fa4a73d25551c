package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible chat-completions server such as
// llama.cpp, LM Studio or vLLM.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

// NewClient targets baseURL (e.g. http://127.0.0.1:8080/v1). apiKey may be empty.
func NewClient(baseURL, apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080/v1"
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var out *GenerateResponse
	err = c.retry.do(ctx, func() (time.Duration, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return 0, permanent(fmt.Errorf("build request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			uerr := &UnreachableError{Host: c.baseURL, Err: err}
			if isRetryableNetErr(err) {
				return 0, uerr
			}
			return 0, permanent(uerr)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			classified := classifyAPIError(apiErr, resp, req.Model)
			if retryableStatus(resp.StatusCode) {
				var rl *RateLimitError
				if errors.As(classified, &rl) {
					return rl.RetryAfter, classified
				}
				return 0, classified
			}
			return 0, permanent(classified)
		}
		var gr GenerateResponse
		if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
			return 0, permanent(fmt.Errorf("decode response: %w", err))
		}
		gr.RequestID = extractRequestID(resp)
		if gr.RequestID == "" {
			gr.RequestID = gr.ID
		}
		out = &gr
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// retryPolicy runs an attempt up to attempts times with jittered exponential
// backoff capped at max. Sleeping honours ctx.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

func newRetryPolicy(attempts int, baseDelay, maxDelay time.Duration) retryPolicy {
	if attempts <= 0 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return retryPolicy{attempts: attempts, base: baseDelay, max: maxDelay}
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// permanent marks err as not worth retrying.
func permanent(err error) error { return permanentError{err: err} }

// do calls attempt until it succeeds, returns a permanent error or the
// attempts run out. attempt may ask for a specific wait (Retry-After).
func (p retryPolicy) do(ctx context.Context, attempt func() (time.Duration, error)) error {
	backoff := p.base
	var lastErr error
	for i := 1; i <= p.attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}
		wait, err := attempt()
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
		if i == p.attempts {
			break
		}
		if wait <= 0 {
			wait = withJitter(backoff)
		}
		if wait > p.max {
			wait = p.max
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-t.C:
		}
		backoff *= 2
	}
	return lastErr
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	if v, ok := raw["error"].(map[string]any); ok {
		if msg, ok := v["message"].(string); ok {
			apiErr.Message = msg
		}
		if code, ok := v["code"].(string); ok {
			apiErr.Code = code
		}
	} else if msg, ok := raw["error"].(string); ok {
		apiErr.Message = msg
	}
	if apiErr.Message == "" {
		if msg, ok := raw["message"].(string); ok {
			apiErr.Message = msg
		}
	}
	if apiErr.Message == "" && len(raw) == 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// a local server that is still starting refuses connections for a moment
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyAPIError maps generic APIError to typed errors.
func classifyAPIError(apiErr *APIError, resp *http.Response, model string) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound:
		if apiErr.Code == "model_not_found" || containsFold(apiErr.Message, "model") {
			return &ModelNotFoundError{APIError: apiErr, Model: model}
		}
		return apiErr
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
