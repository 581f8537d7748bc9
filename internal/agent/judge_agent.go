package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"interview-agent-go/internal/types"
)

// JudgeAgent 汇总JD、简历、问答记录生成最终评估报告的阶段Agent。
// 除基础评分外，还要求模型区分候选人当前职位经验与目标职位要求，
// 在两者不一致时额外产出细分评分表与跨职位转型分析。
type JudgeAgent struct {
	BaseAgent
}

var _ Stage = (*JudgeAgent)(nil)

// NewJudgeAgent 创建评估Agent
func NewJudgeAgent(llm model.ToolCallingChatModel, augmenter Augmenter, useRAG bool, k int, sessionID string) *JudgeAgent {
	return &JudgeAgent{
		BaseAgent: NewBaseAgent(
			types.AgentJudge,
			"당신은 공정하고 논리적인 채용 평가자입니다. 지원자의 강점/약점, 역량별 평가, 최종 추천 여부를 명확하게 제시해야 합니다.",
			llm, augmenter, useRAG, k, sessionID,
		),
	}
}

// Run 生成评估报告并写入状态
func (a *JudgeAgent) Run(ctx context.Context, state *types.InterviewState) error {
	ragContext := a.buildRAGContext(ctx, state,
		fmt.Sprintf("%s 포지션 채용 평가 기준 및 역량 정의", state.JobTitle))

	userPrompt := fmt.Sprintf(`당신은 이제 '%s' 포지션에 지원한 '%s'의 면접 평가를 작성해야 합니다.

[JD 요약]
%s

[JD 요구 역량/기술/경험]
%s

[지원자 이력 요약]
%s

[지원자의 핵심 기술]
%s

[면접 질문 및 답변]
%s

[추가 참고 정보 (RAG)]
%s

**중요 평가 원칙:**
- 역량별 평가 시 지원자의 현재 직군 경험과 목표 직군(%s)의 요구사항을 구분하세요.
- 표면적으로 같은 역량 이름(예: "문제해결")이라도 직군마다 의미가 다릅니다. 지원자의 경험이 목표 직군의 해당 역량과 직접적으로 매칭되지 않으면 보수적으로 점수를 부여하세요.
- 지원자의 직군 배경이 목표 직군과 다른 경우, 직군별 상세 점수표와 전환 가능성 분석을 추가로 작성하세요.

위 정보를 바탕으로 다음을 포함하는 평가 리포트를 작성해주세요:

1) 전체 요약 (3~5문장)
2) 지원자의 주요 강점 리스트
3) 지원자의 주요 약점 리스트
4) 역량별 평가 점수 (예: 커뮤니케이션: 4/5, 문제해결: 3/5, 리더십: 2/5 ...)
5) 최종 추천 (예: Strong Hire / Hire / No Hire) 및 한 줄 코멘트

응답 형식 예시:

[요약]
...

[강점]
- ...

[약점]
- ...

[점수표]
- 커뮤니케이션: 4/5
- 문제해결: 3/5
...

[최종 추천]
Strong Hire - ...

직군 전환 케이스인 경우 아래 섹션도 추가하세요:

[상세 점수표]
- 프로젝트 계획 및 일정 관리: 22.5/30
...

[전환 가능성]
높음 (0.7)

[현재 배경]
...

[목표 직군]
...

[전환 격차]
- ...

[전환 제안]
- ...

위 형식을 최대한 지켜서 작성해주세요.`,
		state.JobTitle,
		state.CandidateName,
		state.JDSummary,
		bulletList(state.JDRequirements),
		state.CandidateSummary,
		skillList(state.CandidateSkills),
		renderQAHistory(state.QAHistory),
		ragContext,
		state.JobTitle,
	)

	content, err := a.callLLM(ctx, userPrompt)
	if err != nil {
		return err
	}

	state.Evaluation = parseEvaluation(content)
	state.Status = types.StatusDone
	state.PrevAgent = a.role
	return nil
}

// renderQAHistory 把问答记录渲染为编号的Q/A对
func renderQAHistory(history []types.QATurn) string {
	if len(history) == 0 {
		return "(질문/답변 기록 없음)"
	}

	lines := make([]string, 0, len(history))
	for i, turn := range history {
		answer := turn.Answer
		if answer == "" {
			answer = "(답변 없음)"
		}
		lines = append(lines, fmt.Sprintf("Q%d. [%s] %s\nA%d. %s",
			i+1, turn.Category, turn.Question, i+1, answer))
	}
	return strings.Join(lines, "\n\n")
}

// parseEvaluation 按分段语法解析评估报告。
// 摘要段缺失时整个原文回退为摘要；原文始终保留在RawText中供审计。
func parseEvaluation(content string) *types.EvaluationResult {
	parsed := parseSections(content,
		"[요약]", "[강점]", "[약점]", "[점수표]", "[최종 추천]",
		"[상세 점수표]", "[전환 가능성]", "[현재 배경]", "[목표 직군]", "[전환 격차]", "[전환 제안]",
	)

	eval := &types.EvaluationResult{
		Summary:        parsed.textOr("[요약]", content),
		Strengths:      parsed.bullets("[강점]"),
		Weaknesses:     parsed.bullets("[약점]"),
		Recommendation: parsed.joined("[최종 추천]", " "),
		Scores:         parsed.scores("[점수표]"),
		RawText:        content,
	}

	if detailed := parsed.detailedScores("[상세 점수표]"); len(detailed) > 0 {
		eval.DetailedScores = detailed
	}

	if likelihood := parsed.firstLine("[전환 가능성]"); likelihood != "" {
		label, score := parseLikelihood(likelihood)
		eval.Transition = &types.CareerTransition{
			Likelihood:        label,
			LikelihoodScore:   score,
			CurrentBackground: parsed.text("[현재 배경]"),
			TargetRole:        parsed.text("[목표 직군]"),
			Gaps:              parsed.bullets("[전환 격차]"),
			Suggestions:       parsed.bullets("[전환 제안]"),
		}
	}

	return eval
}

// parseLikelihood 解析转型可能性行："높음 (0.7)" → ("높음", 0.7)。
// 括号内数值缺省时分数为0。
func parseLikelihood(line string) (string, float64) {
	label := line
	score := 0.0

	if open := strings.Index(line, "("); open >= 0 {
		label = strings.TrimSpace(line[:open])
		rest := line[open+1:]
		if close := strings.Index(rest, ")"); close >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rest[:close]), 64); err == nil {
				score = v
			}
		}
	}

	return label, score
}
