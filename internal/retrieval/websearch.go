package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"
)

var webSearchTracer = otel.Tracer("interview-agent-go/retrieval/websearch")

// WebSearcher 网络检索能力接口。
// 仅在知识库检索质量不足时作为兜底被调用。
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string, maxResults int) ([]types.WebResult, error)
}

// TavilyClient 基于Tavily Search API的网络检索实现
type TavilyClient struct {
	apiKey      string
	baseURL     string
	searchDepth string
	httpClient  *http.Client
}

var _ WebSearcher = (*TavilyClient)(nil)

// NewTavilyClient 创建Tavily检索客户端
func NewTavilyClient(cfg *config.TavilyConfig) (*TavilyClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily API密钥不能为空")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}

	searchDepth := cfg.SearchDepth
	if searchDepth == "" {
		searchDepth = "basic"
	}

	return &TavilyClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		searchDepth: searchDepth,
		httpClient:  &http.Client{Timeout: constants.WebSearchTimeout},
	}, nil
}

type tavilySearchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// SearchWeb 执行一次网络检索。
// Tavily单次最多返回20条，maxResults会被截到该上限。
func (t *TavilyClient) SearchWeb(ctx context.Context, query string, maxResults int) ([]types.WebResult, error) {
	ctx, span := webSearchTracer.Start(ctx, "Tavily.SearchWeb",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("search.provider", "tavily"),
		attribute.String("search.query", tracing.TruncateString(query, tracing.DefaultMaxLength)),
		attribute.Int("search.max_results", maxResults),
	)

	if maxResults <= 0 {
		maxResults = constants.DefaultMaxWebSearchResults
	}
	if maxResults > 20 {
		maxResults = 20
	}

	reqBody := tavilySearchRequest{
		APIKey:      t.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: t.searchDepth,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeWebSearch)
		return nil, fmt.Errorf("序列化检索请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewBuffer(jsonData))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeWebSearch)
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeWebSearch)
		return nil, fmt.Errorf("发送检索请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeWebSearch)
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("tavily API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
		tracing.RecordHTTPError(span, err, resp.StatusCode)
		return nil, err
	}

	var searchResp tavilySearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeWebSearch)
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	results := make([]types.WebResult, 0, len(searchResp.Results))
	for _, item := range searchResp.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, types.WebResult{
			Title:   item.Title,
			Snippet: item.Content,
			URL:     item.URL,
		})
	}

	logger.Info().
		Str("query", query).
		Int("results", len(results)).
		Msg("网络检索完成")

	span.SetAttributes(attribute.Int("search.results.count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}
