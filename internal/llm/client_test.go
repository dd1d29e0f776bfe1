package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientPresets(t *testing.T) {
	c, err := NewClient(Options{Provider: "DeepSeek", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "DeepSeek", c.Name())
	assert.Equal(t, "deepseek-chat", c.Model())
	assert.Equal(t, "https://api.deepseek.com/v1", c.baseURL)

	c, err = NewClient(Options{Provider: "groq", Model: "llama-3.1-8b-instant"})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", c.Model())

	_, err = NewClient(Options{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCompleteSendsOpenAIRequest(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Halo!"}}]}`))
	}))
	defer server.Close()

	c, err := NewClient(Options{Provider: "custom", BaseURL: server.URL + "/", Model: "m", APIKey: "secret"})
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hai"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Halo!", reply)
	assert.Equal(t, "m", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 2048, got.MaxTokens)
}

func TestCompleteMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrQuotaExceeded},
		{"no balance", http.StatusPaymentRequired, `{}`, ErrQuotaExceeded},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewClient(Options{Provider: "groq", BaseURL: server.URL, APIKey: "k"})
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompleteWithoutKey(t *testing.T) {
	c, err := NewClient(Options{Provider: "groq"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
