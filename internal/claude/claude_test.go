package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, blocks []map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, "user", body.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "test-model",
			"content":     blocks,
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 3, "output_tokens": 4},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateJoinsTextBlocks(t *testing.T) {
	srv := newServer(t, []map[string]string{
		{"type": "text", "text": "SUMMARY: rain "},
		{"type": "text", "text": "in Pune"},
	})
	c := NewClient("test-key", "test-model", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	got, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "SUMMARY: rain in Pune", got)
	assert.Equal(t, ProviderName, c.Name())
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := newServer(t, []map[string]string{})
	c := NewClient("test-key", "test-model", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	_, err := c.Generate(context.Background(), "hello")
	assert.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, DefaultModel, NewClient("k", "").model)
}
