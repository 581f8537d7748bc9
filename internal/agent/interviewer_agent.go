package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"interview-agent-go/internal/types"
)

// InterviewerAgent 基于JD分析 + 简历分析 + RAG上下文生成定制面试问题的阶段Agent。
// 只生成问题，答案留空，由调用方（UI或实时面试流程）后续填充。
type InterviewerAgent struct {
	BaseAgent
}

var _ Stage = (*InterviewerAgent)(nil)

// NewInterviewerAgent 创建面试官Agent
func NewInterviewerAgent(llm model.ToolCallingChatModel, augmenter Augmenter, useRAG bool, k int, sessionID string) *InterviewerAgent {
	return &InterviewerAgent{
		BaseAgent: NewBaseAgent(
			types.AgentInterviewer,
			"당신은 구조화된 인터뷰를 진행하는 시니어 면접관입니다. 핵심 역량을 검증할 수 있는 구체적인 질문을 생성하세요.",
			llm, augmenter, useRAG, k, sessionID,
		),
	}
}

// Run 生成面试问题列表并写入状态。
// 模型输出良构时恰好生成TotalQuestions个问题；
// 输出不完整时生成的问题数可能少于目标值，这不是错误。
func (a *InterviewerAgent) Run(ctx context.Context, state *types.InterviewState) error {
	ragContext := a.buildRAGContext(ctx, state,
		fmt.Sprintf("%s %s 인터뷰 질문 예시 평가 기준 역량 차이점", state.JobTitle, state.JobRole))

	userPrompt := fmt.Sprintf(`당신은 '%s' 포지션에 대한 면접관입니다.
지원자 이름은 '%s'입니다.

[JD 요약]
%s

[JD 요구 역량/기술/경험]
%s

[지원자 이력 요약]
%s

[지원자의 핵심 기술]
%s

[추가 참고 정보 (RAG)]
%s

위 정보를 바탕으로 총 %d개의 면접 질문을 만들어주세요.

요구사항:
- 각 질문은 하나의 명확한 역량 또는 경험을 타겟으로 할 것
- 행동 기반 질문(BEHAVIORAL QUESTION)을 우선적으로 생성 (예: 과거 사례 기반)
- 난이도는 중~상 수준
- 질문은 한국어로 작성

응답 형식:

[질문 리스트]
1. (카테고리: 기술) 질문 내용...
2. (카테고리: 협업) 질문 내용...
...

숫자와 카테고리, 질문 내용을 포함해서 출력해주세요.`,
		state.JobTitle,
		state.CandidateName,
		state.JDSummary,
		bulletList(state.JDRequirements),
		state.CandidateSummary,
		skillList(state.CandidateSkills),
		ragContext,
		state.TotalQuestions,
	)

	content, err := a.callLLM(ctx, userPrompt)
	if err != nil {
		return err
	}

	items := parseNumberedQuestions(content, "[질문 리스트]")

	qaList := make([]types.QATurn, 0, len(items))
	for _, item := range items {
		if len(qaList) >= state.TotalQuestions {
			break
		}
		qaList = append(qaList, types.QATurn{
			Interviewer: a.role,
			Question:    item.Text,
			Answer:      "",
			Category:    item.Category,
		})
	}

	state.QAHistory = qaList
	state.CurrentQuestionIndex = len(qaList)
	state.Status = types.StatusInterview
	state.PrevAgent = a.role
	return nil
}
