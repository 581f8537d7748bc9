package constants

import "time"

// 面试流水线与RAG层的默认参数。
const (
	// DefaultTotalQuestions 单场面试默认生成的问题数
	DefaultTotalQuestions = 5
	// DefaultRAGTopK 每个阶段默认注入的参考文档数
	DefaultRAGTopK = 3

	// DefaultRelevanceThreshold 重排阶段的文档相关性下限
	DefaultRelevanceThreshold = 0.6
	// DefaultWebSearchQualityThreshold 质量分低于该值时强制触发网络检索
	DefaultWebSearchQualityThreshold = 0.5
	// DefaultMaxWebSearchResults 网络检索兜底的最大结果数
	DefaultMaxWebSearchResults = 3
	// DedupPrefixLen 文档去重时比较的内容前缀长度（字节）
	DedupPrefixLen = 200

	// NeutralScore 单次评分调用解析失败时的中性兜底分
	NeutralScore = 0.5
)

// 外部调用的超时与重试。
// 超时映射到与格式错误响应相同的失败路径，不允许静默挂起。
const (
	// LLMCallTimeout 单次生成调用的超时
	LLMCallTimeout = 120 * time.Second
	// RetrievalTimeout 向量检索单次调用的超时
	RetrievalTimeout = 15 * time.Second
	// WebSearchTimeout 网络检索单次调用的超时
	WebSearchTimeout = 20 * time.Second
	// ExternalCallMaxRetries 瞬时传输错误的额外重试次数
	ExternalCallMaxRetries = 1
)
