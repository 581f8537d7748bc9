package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"interview-agent-go/internal/types"
)

// ResumeAnalyzerAgent 分析候选人简历的阶段Agent。
// 产出：候选人摘要 + 核心技能列表，并对照JD需求做初步匹配。
// 提示词中显式要求区分候选人当前职位背景与目标职位要求，
// 避免把不同职位语境下的同名能力（如"리더십"）当作等价。
type ResumeAnalyzerAgent struct {
	BaseAgent
}

var _ Stage = (*ResumeAnalyzerAgent)(nil)

// NewResumeAnalyzerAgent 创建简历分析Agent
func NewResumeAnalyzerAgent(llm model.ToolCallingChatModel, augmenter Augmenter, useRAG bool, k int, sessionID string) *ResumeAnalyzerAgent {
	return &ResumeAnalyzerAgent{
		BaseAgent: NewBaseAgent(
			types.AgentResumeAnalyzer,
			"당신은 이력서를 분석하는 채용 담당자입니다. 후보의 강점, 핵심 경험, 기술 스택을 정리하고 JD와의 적합도를 간단히 평가하세요.",
			llm, augmenter, useRAG, k, sessionID,
		),
	}
}

// Run 分析简历并把摘要与技能列表写入状态
func (a *ResumeAnalyzerAgent) Run(ctx context.Context, state *types.InterviewState) error {
	ragContext := a.buildRAGContext(ctx, state,
		fmt.Sprintf("%s %s 이력서 평가 기준 역량 분석 다른 직군 경험과의 차이점", state.JobTitle, state.JobRole))

	userPrompt := fmt.Sprintf(`다음은 지원자 '%s'의 이력서 내용입니다.

[이력서]
%s

[JD 요약]
%s

[JD 요구 역량/기술/경험]
%s

[추가 참고 정보 (직군별 평가 기준)]
%s

**중요 분석 원칙:**
- 지원자의 현재 직군 경험과 목표 직군(%s)의 요구사항을 구분하여 분석하세요.
- 이력서 요약 시 지원자의 실제 직군 배경을 명확히 명시하세요 (예: "Backend 개발자", "Frontend 개발자", "PM" 등).
- JD 요구사항과의 적합도 평가 시, 지원자의 경험이 목표 직군 역량과 직접적으로 매칭되는지 신중히 판단하세요.

위 정보를 기반으로 다음을 작성해주세요:

1) 지원자 이력 요약 (3~5문장)
2) 핵심 기술 스택 리스트 (예: Python, FastAPI, AWS, ...)
3) JD 요구사항과의 적합도에 대한 간단한 코멘트 (2~3문장)

응답 형식:

[이력서 요약]
...

[핵심 기술]
- 기술1
- 기술2
...

[적합도 코멘트]
...`,
		state.CandidateName,
		state.ResumeText,
		state.JDSummary,
		bulletList(state.JDRequirements),
		ragContext,
		state.JobTitle,
	)

	content, err := a.callLLM(ctx, userPrompt)
	if err != nil {
		return err
	}

	parsed := parseSections(content, "[이력서 요약]", "[핵심 기술]", "[적합도 코멘트]")
	state.CandidateSummary = parsed.textOr("[이력서 요약]", content)
	state.CandidateSkills = parsed.bullets("[핵심 기술]")

	state.Status = types.StatusAnalyzing
	state.PrevAgent = a.role
	return nil
}

// bulletList 把字符串列表渲染为 "- item" 行
func bulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// skillList 把技能列表渲染为逗号分隔文本，空列表给出占位说明
func skillList(skills []string) string {
	if len(skills) == 0 {
		return "(기술 정보 없음)"
	}
	return strings.Join(skills, ", ")
}
