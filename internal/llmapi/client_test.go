package llmapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionPlainReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello"}},
			},
		})
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, nil)
	msg, errMsg, err := c.ChatCompletion(context.Background(), "test-model", []Message{{Role: "user", Content: "hi"}}, nil, 0.7)
	require.NoError(t, err)
	assert.Empty(t, errMsg)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Content)
}

func TestChatCompletionToolCallResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{"id": "call_1", "type": "function", "function": map[string]any{
							"name": "list_directory", "arguments": `{"path":"."}`,
						}},
					},
				}},
			},
		})
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, nil)
	msg, _, err := c.ChatCompletion(context.Background(), "test-model", nil, nil, 0.7)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "list_directory", msg.ToolCalls[0].Function.Name)

	args, err := msg.ToolCalls[0].Function.ArgumentsObject()
	require.NoError(t, err)
	assert.Equal(t, ".", args["path"])
}

func TestChatCompletionEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, nil)
	msg, errMsg, err := c.ChatCompletion(context.Background(), "test-model", nil, nil, 0.7)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, "rate limited", errMsg)
}

func TestChatCompletionHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("sk-ant-REDACTED boom"))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, nil)
	_, _, err := c.ChatCompletion(context.Background(), "test-model", nil, nil, 0.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[REDACTED:anthropic_key]")
	assert.NotContains(t, err.Error(), "leakedkeyvalue")
}

func TestSafeLogStringRedactsKnownFormats(t *testing.T) {
	assert.Equal(t,
		"error: [REDACTED:anthropic_key] returned 401",
		SafeLogString("error: sk-ant-REDACTED returned 401"),
	)
	assert.Equal(t,
		"key=[REDACTED] in URL",
		SafeLogString("key=AIzaSyAbcDefGhiJklMnoPqrStUvWxYz01234567 in URL"),
	)
	assert.Equal(t, "normal log message", SafeLogString("normal log message"))
}
