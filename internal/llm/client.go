// Package llm talks to OpenAI-compatible chat completion APIs (Groq,
// DeepSeek, OpenRouter, OpenAI).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("llm provider is not configured")
	ErrUnauthorized  = errors.New("llm api key was rejected")
	ErrQuotaExceeded = errors.New("llm quota exhausted")
	ErrEmptyResponse = errors.New("llm returned no choices")
)

// Provider holds the endpoint and default model of a hosted API
type Provider struct {
	Name    string
	BaseURL string
	Model   string
}

// Providers are the presets selectable with LLM_PROVIDER
var Providers = map[string]Provider{
	"groq":       {Name: "Groq", BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile"},
	"deepseek":   {Name: "DeepSeek", BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
	"openrouter": {Name: "OpenRouter", BaseURL: "https://openrouter.ai/api/v1", Model: "meta-llama/llama-3.1-70b-instruct:free"},
	"openai":     {Name: "OpenAI", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
}

// Message is one turn of a chat in OpenAI format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Completer produces a reply for a conversation
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options configures a Client. Empty BaseURL and Model fall back to the
// preset of Provider.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Client is an OpenAI-compatible chat completion client
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client from opts
func NewClient(opts Options) (*Client, error) {
	preset, ok := Providers[strings.ToLower(opts.Provider)]
	if !ok && opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, opts.Provider)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = preset.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = preset.Model
	}
	name := preset.Name
	if name == "" {
		name = opts.Provider
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		name:       name,
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider display name
func (c *Client) Name() string {
	return c.name
}

// Model returns the model requests are sent to
func (c *Client) Model() string {
	return c.model
}

// Complete sends a chat completion request and returns the first choice
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	reqBody := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2048,
		TopP:        0.95,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call %s API: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return "", ErrQuotaExceeded
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%s API error (status %d): %s", c.name, resp.StatusCode, string(body))
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return completion.Choices[0].Message.Content, nil
}
