package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"interview-agent-go/internal/types"
)

// JDAnalyzerAgent 分析招聘JD的阶段Agent。
// 产出：JD摘要 + 要求的能力/技术/经验列表。
type JDAnalyzerAgent struct {
	BaseAgent
}

var _ Stage = (*JDAnalyzerAgent)(nil)

// NewJDAnalyzerAgent 创建JD分析Agent
func NewJDAnalyzerAgent(llm model.ToolCallingChatModel, augmenter Augmenter, useRAG bool, k int, sessionID string) *JDAnalyzerAgent {
	return &JDAnalyzerAgent{
		BaseAgent: NewBaseAgent(
			types.AgentJDAnalyzer,
			"당신은 채용 공고(JD)를 분석하는 HR 전문가입니다. 핵심 요구 역량/기술/경험을 명확하게 추출해야 합니다.",
			llm, augmenter, useRAG, k, sessionID,
		),
	}
}

// Run 分析JD并把摘要与需求列表写入状态
func (a *JDAnalyzerAgent) Run(ctx context.Context, state *types.InterviewState) error {
	ragContext := a.buildRAGContext(ctx, state,
		fmt.Sprintf("%s 채용 공고 핵심 역량 및 역할", state.JobTitle))

	userPrompt := fmt.Sprintf(`다음은 '%s' 포지션에 대한 채용 공고(JD)입니다.

[JD 원문]
%s

[추가 참고 정보 (선택)]
%s

위 정보를 기반으로 다음과 같이 분석해주세요:

1) JD 핵심 요약 (3~5문장)
2) 요구되는 역량/기술/경험을 항목별 리스트로 정리
   - 형식 예시:
     - 역량: 문제해결 능력
     - 기술: Python, FastAPI
     - 경험: 3년 이상의 웹 서비스 개발 경험

응답은 다음 형식을 지켜주세요:

[JD 요약]
...

[요구 역량/기술/경험]
- ...
- ...
- ...`, state.JobTitle, state.JDText, ragContext)

	content, err := a.callLLM(ctx, userPrompt)
	if err != nil {
		return err
	}

	parsed := parseSections(content, "[JD 요약]", "[요구 역량")
	state.JDSummary = parsed.textOr("[JD 요약]", content)
	state.JDRequirements = parsed.bullets("[요구 역량")

	state.Status = types.StatusAnalyzing
	state.PrevAgent = a.role
	return nil
}
