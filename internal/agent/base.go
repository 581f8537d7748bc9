package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/retrieval"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"
)

var agentTracer = otel.Tracer("interview-agent-go/agent")

// Stage 流水线中的一个处理阶段。
// 每个阶段读取共享状态，调用LLM（可选地先做检索增强），把结构化结果写回状态。
type Stage interface {
	// Role 返回阶段的角色标识（types.Agent*），同时作为溯源信息的键
	Role() string

	// Run 执行阶段逻辑，原地更新state。
	// 阶段的主生成调用失败时返回错误，整次运行随之失败。
	Run(ctx context.Context, state *types.InterviewState) error
}

// Augmenter 为阶段Agent提供检索增强上下文。
type Augmenter interface {
	Augment(ctx context.Context, query, roleTag, currentContext string, k int) (*retrieval.AugmentResult, error)
}

// BaseAgent 四个阶段Agent共享的脚手架：
// 检索上下文获取（按角色记录溯源）、LLM调用（带超时/重试/追踪）。
type BaseAgent struct {
	role         string
	systemPrompt string
	llm          model.ToolCallingChatModel
	augmenter    Augmenter // 可为nil
	useRAG       bool
	k            int
	sessionID    string
}

// NewBaseAgent 创建阶段Agent的公共部分。
// augmenter为nil或k<=0时该阶段不做检索增强。
func NewBaseAgent(role, systemPrompt string, llm model.ToolCallingChatModel, augmenter Augmenter, useRAG bool, k int, sessionID string) BaseAgent {
	if k <= 0 {
		k = constants.DefaultRAGTopK
	}
	return BaseAgent{
		role:         role,
		systemPrompt: systemPrompt,
		llm:          llm,
		augmenter:    augmenter,
		useRAG:       useRAG,
		k:            k,
		sessionID:    sessionID,
	}
}

// Role 返回阶段角色标识
func (b *BaseAgent) Role() string {
	return b.role
}

// buildRAGContext 获取检索增强上下文并把溯源信息写入状态。
// 检索失败不阻断阶段执行，退化为空上下文。
func (b *BaseAgent) buildRAGContext(ctx context.Context, state *types.InterviewState, query string) string {
	if !b.useRAG || b.augmenter == nil || b.k <= 0 {
		return ""
	}

	state.EnsureProvenanceMaps()

	result, err := b.augmenter.Augment(ctx, query, state.JobRole, "", b.k)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("agent", b.role).
			Str("query", query).
			Msg("检索增强失败，该阶段使用空上下文")
		return ""
	}

	state.RAGContexts[b.role] = result.ContextText
	state.RAGDocs[b.role] = result.Documents
	state.WebSearchInfo[b.role] = result.WebSearch

	return result.ContextText
}

// callLLM 执行阶段的主生成调用（system + user单轮）。
// 带超时与一次瞬时失败重试；最终失败时错误向上传播，整次运行失败。
// session.id作为span属性记录，便于按会话聚合观测一次完整流水线。
func (b *BaseAgent) callLLM(ctx context.Context, userPrompt string) (string, error) {
	ctx, span := agentTracer.Start(ctx, fmt.Sprintf("Agent.%s.Generate", b.role))
	defer span.End()

	span.SetAttributes(
		attribute.String("agent.role", b.role),
		attribute.String("session.id", b.sessionID),
		attribute.String("llm.prompt", tracing.SafePrompt(userPrompt)),
	)

	messages := []*schema.Message{
		schema.SystemMessage(b.systemPrompt),
		schema.UserMessage(userPrompt),
	}

	var content string
	var lastErr error
	for attempt := 0; attempt <= constants.ExternalCallMaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, constants.LLMCallTimeout)
		msg, err := b.llm.Generate(callCtx, messages)
		cancel()
		if err == nil {
			content = msg.Content
			lastErr = nil
			break
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logger.Warn().
			Err(err).
			Str("agent", b.role).
			Int("attempt", attempt+1).
			Msg("LLM调用失败")
	}

	if lastErr != nil {
		tracing.RecordError(span, lastErr, tracing.ErrorTypeLLM)
		return "", fmt.Errorf("阶段 %s 的LLM调用失败: %w", b.role, lastErr)
	}

	span.SetAttributes(attribute.Int("llm.response_length", len(content)))
	span.SetStatus(codes.Ok, "")
	return content, nil
}
