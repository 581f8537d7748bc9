package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-agent-go/internal/config"
)

// TestTavilySearchWeb 验证请求体构造与响应映射
func TestTavilySearchWeb(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var req tavilySearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, "백엔드 면접 기준", req.Query)
		assert.Equal(t, 3, req.MaxResults)
		assert.Equal(t, "basic", req.SearchDepth)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "면접 가이드", "url": "https://example.com/a", "content": "평가 기준 정리", "score": 0.9},
			{"title": "추가 자료", "url": "https://example.com/b", "content": "보충 내용", "score": 0.7}
		]}`))
	}))
	defer server.Close()

	client, err := NewTavilyClient(&config.TavilyConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	results, err := client.SearchWeb(context.Background(), "백엔드 면접 기준", 3)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "면접 가이드", results[0].Title)
	assert.Equal(t, "평가 기준 정리", results[0].Snippet)
	assert.Equal(t, "https://example.com/a", results[0].URL)
}

// TestTavilySearchWebCapsResults 验证结果数被截断到maxResults
func TestTavilySearchWebCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"title": "1", "url": "https://example.com/1", "content": "a"},
			{"title": "2", "url": "https://example.com/2", "content": "b"},
			{"title": "3", "url": "https://example.com/3", "content": "c"}
		]}`))
	}))
	defer server.Close()

	client, err := NewTavilyClient(&config.TavilyConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	results, err := client.SearchWeb(context.Background(), "쿼리", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// TestTavilySearchWebHTTPError 验证非200状态码作为错误返回
func TestTavilySearchWebHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer server.Close()

	client, err := NewTavilyClient(&config.TavilyConfig{APIKey: "bad-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.SearchWeb(context.Background(), "쿼리", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

// TestNewTavilyClientValidation 验证密钥必填与默认值
func TestNewTavilyClientValidation(t *testing.T) {
	_, err := NewTavilyClient(nil)
	assert.Error(t, err)

	_, err = NewTavilyClient(&config.TavilyConfig{})
	assert.Error(t, err)

	client, err := NewTavilyClient(&config.TavilyConfig{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.tavily.com", client.baseURL)
	assert.Equal(t, "basic", client.searchDepth)
}
