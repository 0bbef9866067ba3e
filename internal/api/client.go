// Package api provides the OpenRouter chat-completions transport for codeswap.
// Every model (OpenAI, Anthropic, Google, Meta, etc.) is reached through the
// same OpenAI-compatible endpoint with a single API key.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultBaseURL is the OpenRouter chat-completions endpoint root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// defaultTimeout bounds a single completion request, streaming or not.
const defaultTimeout = 120 * time.Second

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage carries the token counts reported for one completion.
// When the upstream omits usage data, OutputTokens holds an estimate.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Client issues chat-completion requests against an OpenRouter-compatible
// endpoint and tracks token usage across calls.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracker    *TokenTracker
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint root (for testing
// or self-hosted gateways).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new OpenRouter client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracker:    NewTokenTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type usagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *usagePayload `json:"usage"`
}

// Complete makes a non-streaming completion call and returns the full
// response text with its token usage.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, maxTokens int) (string, Usage, error) {
	body := chatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", Usage{}, fmt.Errorf("decoding completion response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("completion response has no choices")
	}

	text := decoded.Choices[0].Message.Content
	usage := Usage{}
	if decoded.Usage != nil {
		usage.InputTokens = decoded.Usage.PromptTokens
		usage.OutputTokens = decoded.Usage.CompletionTokens
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = estimateOutputTokens(text)
	}

	c.tracker.Add(usage.InputTokens, usage.OutputTokens)
	return text, usage, nil
}

// post sends a request body to the chat-completions endpoint and returns
// the response once the status has been checked.
func (c *Client) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/codeswap/codeswap")
	req.Header.Set("X-Title", "codeswap")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling completion endpoint: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("completion endpoint returned %s: %s",
			resp.Status, bytes.TrimSpace(snippet))
	}
	return resp, nil
}

// estimateOutputTokens approximates the completion token count when the
// upstream omits usage data (roughly four characters per token).
func estimateOutputTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int
	outputTok int
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears all tracked token usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok = 0
	t.outputTok = 0
	t.calls = 0
}
