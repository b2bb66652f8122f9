package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-topic-notes/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	var received ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"model":"qwen3","message":{"role":"assistant","content":"pong"},"done":true}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "qwen3")
	reply, err := p.Generate(context.Background(), "ping", llm.WithMaxTokens(64), llm.WithReasoningEffort("none"))

	require.NoError(t, err)
	assert.Equal(t, "pong", reply)
	assert.Equal(t, "qwen3", received.Model)
	assert.False(t, received.Stream)
	require.NotNil(t, received.Think)
	assert.False(t, *received.Think)
	assert.Equal(t, 64, received.Options.NumPredict)
	assert.Equal(t, llm.RoleUser, received.Messages[0].Role)
}

func TestOllamaProvider_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "missing").Generate(context.Background(), "ping")
	assert.ErrorContains(t, err, "status 404")
}
