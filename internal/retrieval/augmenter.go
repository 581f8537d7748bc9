package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"
)

var augmenterTracer = otel.Tracer("interview-agent-go/retrieval/augmenter")

// Augmenter 检索增强层。
// 流程：向量索引预检索 → LLM质量评估 → 重排/去重/过滤 → (必要时)网络兜底检索 → 合并重排 → 截断。
// 质量评估和逐文档打分失败一律退化为中性默认值，不会中断流水线；
// 只有完全没有可用检索来源时上下文为空，这同样不是错误。
type Augmenter struct {
	index    KnowledgeIndex
	embedder embedding.Embedder
	searcher WebSearcher // 可为nil，表示禁用网络兜底
	llm      model.ToolCallingChatModel

	relevanceThreshold        float64
	webSearchQualityThreshold float64
	maxWebSearchResults       int
	enableWebSearch           bool
}

// AugmentResult 一次检索增强的产出：上下文文本 + 溯源信息。
type AugmentResult struct {
	ContextText string
	Documents   []types.Document
	WebSearch   types.WebSearchInfo
}

// qualityEvaluation 质量评估的结构化结论。
type qualityEvaluation struct {
	QualityScore   float64
	NeedsWebSearch bool
	WebSearchQuery string
	Issues         []string
}

// NewAugmenter 创建检索增强层。
// searcher为nil或cfg.EnableWebSearch为false时不做网络兜底。
func NewAugmenter(index KnowledgeIndex, embedder embedding.Embedder, searcher WebSearcher, llm model.ToolCallingChatModel, cfg *config.RAGConfig) *Augmenter {
	a := &Augmenter{
		index:                     index,
		embedder:                  embedder,
		searcher:                  searcher,
		llm:                       llm,
		relevanceThreshold:        constants.DefaultRelevanceThreshold,
		webSearchQualityThreshold: constants.DefaultWebSearchQualityThreshold,
		maxWebSearchResults:       constants.DefaultMaxWebSearchResults,
		enableWebSearch:           true,
	}
	if cfg != nil {
		if cfg.RelevanceThreshold > 0 {
			a.relevanceThreshold = cfg.RelevanceThreshold
		}
		if cfg.WebSearchQualityThreshold > 0 {
			a.webSearchQualityThreshold = cfg.WebSearchQualityThreshold
		}
		if cfg.MaxWebSearchResults > 0 {
			a.maxWebSearchResults = cfg.MaxWebSearchResults
		}
		a.enableWebSearch = cfg.EnableWebSearch
	}
	return a
}

// Augment 为一次Agent调用构建检索增强上下文。
// roleTag 作为索引过滤条件；role过滤无结果且role非general时降级为general再试一次。
// currentContext 是调用方已有的上下文，仅供质量评估参考。
func (a *Augmenter) Augment(ctx context.Context, query, roleTag, currentContext string, k int) (*AugmentResult, error) {
	ctx, span := augmenterTracer.Start(ctx, "Augmenter.Augment")
	defer span.End()

	span.SetAttributes(
		attribute.String("rag.query", tracing.TruncateString(query, tracing.DefaultMaxLength)),
		attribute.String("rag.role", roleTag),
		attribute.Int("rag.k", k),
	)

	if k <= 0 {
		k = constants.DefaultRAGTopK
	}

	// 1. 预检索：取2k个候选，给重排留筛选余量
	docs, err := a.preRetrieve(ctx, query, roleTag, 2*k)
	if err != nil {
		// 索引不可用时退化为空候选集，后续仍可走网络兜底
		logger.Warn().Err(err).Str("query", query).Msg("知识库预检索失败，按空结果继续")
		docs = nil
	}
	span.SetAttributes(attribute.Int("rag.pre_retrieved", len(docs)))

	// 2. 质量评估（含网络检索必要性判断）
	quality := a.evaluateQuality(ctx, docs, query, currentContext)
	span.SetAttributes(
		attribute.Float64("rag.quality_score", quality.QualityScore),
		attribute.Bool("rag.needs_web_search", quality.NeedsWebSearch),
	)

	// 3. 重排 + 阈值过滤 + 去重
	ranked := a.rerank(ctx, docs, query)

	// 4. 网络兜底检索
	webInfo := types.WebSearchInfo{
		QualityScore: quality.QualityScore,
		Issues:       quality.Issues,
	}
	if quality.NeedsWebSearch && a.enableWebSearch && a.searcher != nil {
		webQuery := quality.WebSearchQuery
		if webQuery == "" {
			webQuery = query
		}

		webResults, err := a.searchWebWithRetry(ctx, webQuery)
		if err != nil {
			logger.Warn().Err(err).Str("query", webQuery).Msg("网络兜底检索失败，跳过")
		} else if len(webResults) > 0 {
			webInfo.Used = true
			webInfo.Query = webQuery
			webInfo.ResultsCount = len(webResults)
			webInfo.Results = webResults

			merged := append(ranked, wrapWebResults(webResults)...)
			// 合并后候选集变大，重新排一次
			if len(merged) > len(ranked) {
				ranked = a.rerank(ctx, merged, query)
			}
		}
	}

	// 5. 截断到k并拼接上下文
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	result := &AugmentResult{
		ContextText: buildContextText(ranked),
		Documents:   ranked,
		WebSearch:   webInfo,
	}

	span.SetAttributes(
		attribute.Int("rag.final_docs", len(ranked)),
		attribute.Bool("rag.web_search_used", webInfo.Used),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// preRetrieve 从向量索引取候选片段。
// role过滤为空结果且role不是general时，降级到general标签重试一次。
func (a *Augmenter) preRetrieve(ctx context.Context, query, roleTag string, limit int) ([]types.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RetrievalTimeout)
	defer cancel()

	vectors, err := a.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询向量失败: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("嵌入接口返回空向量")
	}

	docs, err := a.index.Search(ctx, vectors[0], limit, roleTag)
	if err != nil {
		return nil, fmt.Errorf("向量索引检索失败: %w", err)
	}

	if len(docs) == 0 && roleTag != types.DefaultJobRole {
		logger.Debug().Str("role", roleTag).Msg("角色过滤无结果，降级为general重试")
		docs, err = a.index.Search(ctx, vectors[0], limit, types.DefaultJobRole)
		if err != nil {
			return nil, fmt.Errorf("向量索引降级检索失败: %w", err)
		}
	}

	return docs, nil
}

// evaluateQuality 让LLM评估候选集质量并判断是否需要网络检索。
// 任何失败都退化为中性结论（0.5分、不检索），从不向上返回错误。
// 是否检索的最终结论是模型判断与分数阈值的逻辑或：
// 即使模型认为不需要，分数低于阈值仍强制触发。
func (a *Augmenter) evaluateQuality(ctx context.Context, docs []types.Document, query, currentContext string) qualityEvaluation {
	if len(docs) == 0 {
		return qualityEvaluation{
			QualityScore:   0.0,
			NeedsWebSearch: true,
			WebSearchQuery: query,
			Issues:         []string{"검색 결과가 없습니다."},
		}
	}

	var summaryLines []string
	for i, doc := range docs {
		if i >= 5 {
			break
		}
		summaryLines = append(summaryLines, fmt.Sprintf("[문서 %d]\n%s...", i+1, truncateRunes(doc.Content, 200)))
	}

	contextPart := "없음"
	if currentContext != "" {
		contextPart = truncateRunes(currentContext, 500)
	}

	prompt := fmt.Sprintf(`다음은 RAG 검색 결과입니다:

[검색 쿼리]
%s

[검색 결과]
%s

[현재 컨텍스트]
%s

위 검색 결과를 평가하고 다음을 판단해주세요:

1) 검색 결과의 관련성 및 품질 점수 (0.0 ~ 1.0)
2) 추가 웹 검색이 필요한지 여부
3) 웹 검색이 필요하다면 검색 쿼리
4) 발견된 문제점

응답 형식:
[품질 점수]
0.75

[웹 검색 필요]
예/아니오

[웹 검색 쿼리]
(필요한 경우에만) 구체적인 검색 쿼리

[문제점]
- 문제점 1
- 문제점 2`, query, strings.Join(summaryLines, "\n"), contextPart)

	content, err := a.callLLM(ctx, "당신은 RAG 검색 결과의 품질을 평가하는 전문가입니다.", prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("检索质量评估失败，使用中性默认值")
		return qualityEvaluation{
			QualityScore:   constants.NeutralScore,
			NeedsWebSearch: false,
			Issues:         []string{fmt.Sprintf("평가 중 오류 발생: %v", err)},
		}
	}

	eval := parseQualityResponse(content)
	// 阈值兜底：模型的判断之外的确定性保险
	eval.NeedsWebSearch = eval.NeedsWebSearch || eval.QualityScore < a.webSearchQualityThreshold
	if eval.WebSearchQuery == "" {
		eval.WebSearchQuery = query
	}
	return eval
}

// parseQualityResponse 解析质量评估输出。缺失段落使用默认值：0.5分、不检索、无问题。
func parseQualityResponse(content string) qualityEvaluation {
	eval := qualityEvaluation{QualityScore: constants.NeutralScore}

	current := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "[품질 점수]"):
			current = "quality"
			continue
		case strings.HasPrefix(line, "[웹 검색 필요]"):
			current = "web_search"
			continue
		case strings.HasPrefix(line, "[웹 검색 쿼리]"):
			current = "query"
			continue
		case strings.HasPrefix(line, "[문제점]"):
			current = "issues"
			continue
		}

		switch current {
		case "quality":
			if v, err := strconv.ParseFloat(line, 64); err == nil {
				eval.QualityScore = v
			}
		case "web_search":
			lower := strings.ToLower(line)
			if strings.Contains(line, "예") || strings.Contains(lower, "yes") || strings.Contains(line, "필요") {
				eval.NeedsWebSearch = true
			}
		case "query":
			if eval.WebSearchQuery == "" && !strings.HasPrefix(line, "(") {
				eval.WebSearchQuery = line
			}
		case "issues":
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
				issue := strings.TrimSpace(strings.TrimLeft(line, "-• "))
				if issue != "" {
					eval.Issues = append(eval.Issues, issue)
				}
			}
		}
	}

	return eval
}

// rerank 逐文档打相关性分，过滤低于阈值的文档，按分数降序排序后按内容前缀去重。
// 单个文档打分失败使用中性分0.5，去重时先出现的文档保留。
func (a *Augmenter) rerank(ctx context.Context, docs []types.Document, query string) []types.Document {
	if len(docs) == 0 {
		return nil
	}

	scored := make([]types.Document, len(docs))
	for i, doc := range docs {
		doc.Score = a.scoreRelevance(ctx, doc, query)
		scored[i] = doc
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	var result []types.Document
	seen := make(map[string]bool)
	for _, doc := range scored {
		if doc.Score < a.relevanceThreshold {
			continue
		}
		prefix := truncateRunes(doc.Content, constants.DedupPrefixLen)
		if seen[prefix] {
			continue
		}
		seen[prefix] = true
		result = append(result, doc)
	}

	return result
}

// scoreRelevance 用LLM对单个文档打0.0~1.0的相关性分。
// 调用失败或输出不是数字时返回中性分。
func (a *Augmenter) scoreRelevance(ctx context.Context, doc types.Document, query string) float64 {
	prompt := fmt.Sprintf(`다음 문서가 검색 쿼리와 얼마나 관련이 있는지 0.0 ~ 1.0 점수로 평가해주세요.

[검색 쿼리]
%s

[문서 내용]
%s

점수만 숫자로 출력하세요 (예: 0.75)`, query, truncateRunes(doc.Content, 500))

	content, err := a.callLLM(ctx, "당신은 문서의 관련성을 평가하는 전문가입니다.", prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("文档相关性打分失败，使用中性分")
		return constants.NeutralScore
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return constants.NeutralScore
	}
	return score
}

// searchWebWithRetry 执行网络检索，瞬时失败重试一次。
func (a *Augmenter) searchWebWithRetry(ctx context.Context, query string) ([]types.WebResult, error) {
	var lastErr error
	for attempt := 0; attempt <= constants.ExternalCallMaxRetries; attempt++ {
		results, err := a.searcher.SearchWeb(ctx, query, a.maxWebSearchResults)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// callLLM 执行一次小型评估调用（system + user），返回文本内容。
func (a *Augmenter) callLLM(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.LLMCallTimeout)
	defer cancel()

	msg, err := a.llm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// wrapWebResults 把网络检索结果包装为web_search类型的文档
func wrapWebResults(results []types.WebResult) []types.Document {
	docs := make([]types.Document, 0, len(results))
	for _, r := range results {
		source := r.URL
		if source == "" {
			source = "web_search"
		}
		docs = append(docs, types.Document{
			Content: r.Title + "\n" + r.Snippet,
			Source:  source,
			Type:    types.DocTypeWebSearch,
			Role:    types.DefaultJobRole,
		})
	}
	return docs
}

// buildContextText 把最终文档拼接为带编号和来源标记的上下文文本。
// 知识库片段用 [문서 N]，网络检索结果用 [웹 N]，N为最终列表中的位置。
func buildContextText(docs []types.Document) string {
	if len(docs) == 0 {
		return ""
	}

	lines := make([]string, 0, len(docs))
	for i, doc := range docs {
		tag := "문서"
		if doc.Type == types.DocTypeWebSearch {
			tag = "웹"
		}
		lines = append(lines, fmt.Sprintf("[%s %d] 출처: %s\n%s", tag, i+1, doc.Source, doc.Content))
	}
	return strings.Join(lines, "\n\n")
}

// truncateRunes 按rune数截断字符串，保证多字节文本不被截断在字符中间
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
