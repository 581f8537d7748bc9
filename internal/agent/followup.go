package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/tracing"
)

// FollowUpGenerator 从一对问答生成一条追问。
// 独立于流水线的单次操作：不做检索增强，也不修改状态；
// 调用方负责把返回的问题以追问形式追加到问答列表
// （types.InterviewState.AppendFollowUp 会维护父问题下标约束）。
type FollowUpGenerator struct {
	llm       model.ToolCallingChatModel
	sessionID string
}

// NewFollowUpGenerator 创建追问生成器
func NewFollowUpGenerator(llm model.ToolCallingChatModel, sessionID string) *FollowUpGenerator {
	return &FollowUpGenerator{
		llm:       llm,
		sessionID: sessionID,
	}
}

// Generate 基于一对问答生成一条追问。
// answer应当非空，由调用方在调用前保证；category可为空。
// 输出为单句问题，长度只靠提示词约束。
func (f *FollowUpGenerator) Generate(ctx context.Context, jobTitle, question, answer, category string) (string, error) {
	ctx, span := agentTracer.Start(ctx, "FollowUp.Generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("session.id", f.sessionID),
		attribute.String("job.title", jobTitle),
		attribute.String("question.category", category),
	)

	categoryPart := category
	if categoryPart == "" {
		categoryPart = "일반"
	}

	userPrompt := fmt.Sprintf(`당신은 '%s' 포지션의 면접관입니다.
아래 질문과 지원자의 답변을 읽고, 답변 내용을 더 깊이 파고드는 후속 질문(follow-up)을 하나만 생성하세요.

[원래 질문] (카테고리: %s)
%s

[지원자 답변]
%s

요구사항:
- 답변에서 언급된 구체적인 내용(수치, 기술, 판단 근거 등)을 파고들 것
- 원래 질문을 단순히 반복하지 말 것
- 한 문장으로, 한국어로 작성할 것

후속 질문만 출력하세요.`, jobTitle, categoryPart, question, answer)

	messages := []*schema.Message{
		schema.SystemMessage("당신은 지원자의 답변을 검증하는 시니어 면접관입니다. 핵심을 찌르는 후속 질문을 만드세요."),
		schema.UserMessage(userPrompt),
	}

	var content string
	var lastErr error
	for attempt := 0; attempt <= constants.ExternalCallMaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, constants.LLMCallTimeout)
		msg, err := f.llm.Generate(callCtx, messages)
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
	}

	if lastErr != nil {
		tracing.RecordError(span, lastErr, tracing.ErrorTypeLLM)
		return "", fmt.Errorf("追问生成失败: %w", lastErr)
	}

	followUp := strings.TrimSpace(content)
	if followUp == "" {
		err := fmt.Errorf("追问生成结果为空")
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", err
	}

	span.SetStatus(codes.Ok, "")
	return followUp, nil
}
