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
	"interview-agent-go/internal/types"
)

// newQdrantTestServer 模拟Qdrant HTTP接口，记录请求供断言
func newQdrantTestServer(t *testing.T, collectionExists bool, handler func(w http.ResponseWriter, r *http.Request) bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 集合存在性检查
		if r.Method == http.MethodGet && r.URL.Path == "/collections/test_knowledge" {
			if collectionExists {
				w.Write([]byte(`{"status": "ok"}`))
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
			return
		}
		// 集合创建
		if r.Method == http.MethodPut && r.URL.Path == "/collections/test_knowledge" {
			w.Write([]byte(`{"status": "ok"}`))
			return
		}

		if handler != nil && handler(w, r) {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func testQdrantConfig(endpoint string) *config.QdrantConfig {
	return &config.QdrantConfig{
		Endpoint:   endpoint,
		Collection: "test_knowledge",
		Dimension:  3,
	}
}

// TestQdrantCreatesMissingCollection 验证集合不存在时自动创建
func TestQdrantCreatesMissingCollection(t *testing.T) {
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut:
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]interface{})
			assert.Equal(t, float64(3), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
			created = true
			w.Write([]byte(`{"status": "ok"}`))
		}
	}))
	defer server.Close()

	_, err := NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)
	assert.True(t, created)
}

// TestQdrantSearchWithRoleFilter 验证role过滤条件与结果映射
func TestQdrantSearchWithRoleFilter(t *testing.T) {
	server := newQdrantTestServer(t, true, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/test_knowledge/points/search" {
			return false
		}

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(5), req["limit"])

		filter := req["filter"].(map[string]interface{})
		must := filter["must"].([]interface{})
		cond := must[0].(map[string]interface{})
		assert.Equal(t, "role", cond["key"])
		assert.Equal(t, "backend", cond["match"].(map[string]interface{})["value"])

		w.Write([]byte(`{"result": [
			{"id": "p1", "score": 0.92, "payload": {"content": "지식 내용", "source": "backend/guide.md", "role": "backend", "type": "knowledge"}}
		], "status": "ok"}`))
		return true
	})
	defer server.Close()

	q, err := NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	docs, err := q.Search(context.Background(), []float64{0.1, 0.2, 0.3}, 5, "backend")
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "지식 내용", docs[0].Content)
	assert.Equal(t, "backend/guide.md", docs[0].Source)
	assert.Equal(t, "backend", docs[0].Role)
	assert.Equal(t, types.DocTypeKnowledge, docs[0].Type)
	assert.Equal(t, 0.92, docs[0].Score)
}

// TestQdrantSearchDimensionMismatch 验证查询向量维度校验
func TestQdrantSearchDimensionMismatch(t *testing.T) {
	server := newQdrantTestServer(t, true, nil)
	defer server.Close()

	q, err := NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	_, err = q.Search(context.Background(), []float64{0.1}, 5, "backend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "维度")
}

// TestQdrantUpsertDocuments 验证写入点的payload结构
func TestQdrantUpsertDocuments(t *testing.T) {
	var captured map[string]interface{}
	server := newQdrantTestServer(t, true, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/test_knowledge/points" {
			return false
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"result": {"status": "acknowledged"}, "status": "ok"}`))
		return true
	})
	defer server.Close()

	q, err := NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	err = q.UpsertDocuments(context.Background(), []KnowledgePoint{
		{ID: "point-1", Vector: []float64{0.1, 0.2, 0.3}, Content: "내용", Source: "guide.md", Role: ""},
	})
	require.NoError(t, err)

	points := captured["points"].([]interface{})
	require.Len(t, points, 1)
	point := points[0].(map[string]interface{})
	assert.Equal(t, "point-1", point["id"])

	payload := point["payload"].(map[string]interface{})
	assert.Equal(t, "내용", payload["content"])
	// 空role归入general
	assert.Equal(t, "general", payload["role"])
	assert.Equal(t, "knowledge", payload["type"])
}

// TestQdrantUpsertDimensionMismatch 验证写入向量维度校验
func TestQdrantUpsertDimensionMismatch(t *testing.T) {
	server := newQdrantTestServer(t, true, nil)
	defer server.Close()

	q, err := NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	err = q.UpsertDocuments(context.Background(), []KnowledgePoint{
		{ID: "point-1", Vector: []float64{0.1}, Content: "내용"},
	})
	assert.Error(t, err)
}

// TestQdrantCountPoints 验证点计数
func TestQdrantCountPoints(t *testing.T) {
	server := newQdrantTestServer(t, true, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path != "/collections/test_knowledge/points/count" {
			return false
		}
		w.Write([]byte(`{"result": {"count": 42}}`))
		return true
	})
	defer server.Close()

	q, err := NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	count, err := q.CountPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
