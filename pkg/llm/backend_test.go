package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/bookgraph/pkg/fault"
	"github.com/randalmurphal/bookgraph/pkg/llm"
)

const openAIReply = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-4o-mini",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "status": "completed",
    "role": "assistant",
    "content": [{"type": "output_text", "text": "{\"reply\":\"추천드릴게요\"}", "annotations": []}]
  }],
  "usage": {"input_tokens": 12, "output_tokens": 5, "total_tokens": 17,
    "input_tokens_details": {"cached_tokens": 0}, "output_tokens_details": {"reasoning_tokens": 0}}
}`

func TestOpenAI_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openAIReply)
	}))
	defer srv.Close()

	client, err := llm.NewOpenAI("sk-test", []llm.Option{llm.WithModel("gpt-4o-mini")}, option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		System:     "You are a librarian.",
		Messages:   []llm.Message{llm.UserMessage("소설 추천해줘")},
		Schema:     map[string]any{"type": "object"},
		SchemaName: "draft",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"추천드릴게요"}`, resp.Content)
	assert.Equal(t, 17, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "You are a librarian.", body["instructions"])
	format := body["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "draft", format["name"])
}

func TestOpenAI_ErrorIsCategorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	client, err := llm.NewOpenAI("sk-test", nil, option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.Error(t, err)
	var httpErr *fault.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.True(t, fault.IsRetryable(err))
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := llm.NewOpenAI("", nil)
	assert.Error(t, err)
}

func TestGemini_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
		  "candidates": [{"content": {"role": "model", "parts": [{"text": "반갑습니다"}]}, "finishReason": "STOP"}],
		  "usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 3, "totalTokenCount": 7}
		}`)
	}))
	defer srv.Close()

	client, err := llm.NewGemini(context.Background(), "g-key", srv.URL, llm.WithModel("gemini-test"))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		System: "Be brief.",
		Messages: []llm.Message{
			llm.UserMessage("안녕"),
			llm.AssistantMessage("안녕하세요"),
			llm.UserMessage("책 추천"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "반갑습니다", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	contents := body["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.Contains(t, body, "systemInstruction")
}

func TestGemini_EmptyModelKeepsDefault(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "네"}]}, "finishReason": "STOP"}]}`)
	}))
	defer srv.Close()

	client, err := llm.NewGemini(context.Background(), "g-key", srv.URL, llm.WithModel(""))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.UserMessage("안녕")}})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "gemini-2.0-flash:generateContent"), path)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := llm.NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
