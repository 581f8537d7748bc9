package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-agent-go/internal/types"
)

// mockChatModel 按提示词内容路由到预设响应的测试模型。
// respond为nil时按段落头特征返回各阶段的良构响应。
type mockChatModel struct {
	respond func(prompt string) (string, error)
	calls   []string
}

var _ model.ToolCallingChatModel = (*mockChatModel)(nil)

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	prompt := ""
	for _, msg := range input {
		if msg.Role == schema.User {
			prompt = msg.Content
		}
	}
	m.calls = append(m.calls, prompt)

	if m.respond != nil {
		content, err := m.respond(prompt)
		if err != nil {
			return nil, err
		}
		return &schema.Message{Role: schema.Assistant, Content: content}, nil
	}

	return &schema.Message{Role: schema.Assistant, Content: defaultStageResponse(prompt)}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("mock不支持流式输出")
}

func (m *mockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// defaultStageResponse 按提示词特征区分阶段，返回对应的良构响应。
// 判定顺序有意从后往前：评估提示词同时包含前置阶段的段落头。
func defaultStageResponse(prompt string) string {
	switch {
	case strings.Contains(prompt, "[최종 추천]"):
		return `[요약]
기술 역량이 뛰어난 지원자입니다.

[강점]
- 대규모 시스템 운영 경험

[약점]
- 리더십 경험 부족

[점수표]
- 커뮤니케이션: 4/5
- 문제해결: 3/5

[최종 추천]
Hire - 기술 면접 통과 수준입니다.`

	case strings.Contains(prompt, "[질문 리스트]"):
		return `[질문 리스트]
1. (카테고리: 기술) 대규모 트래픽 처리 경험을 설명해주세요.
2. (카테고리: 협업) 팀 내 갈등을 해결한 사례가 있나요?
3. (카테고리: 기술) 장애 대응 프로세스를 어떻게 설계했나요?`

	case strings.Contains(prompt, "[이력서 요약]"):
		return `[이력서 요약]
백엔드 개발 5년차 지원자입니다.

[핵심 기술]
- Go
- MySQL
- Redis

[적합도 코멘트]
JD 요구사항과 잘 부합합니다.`

	default:
		return `[JD 요약]
백엔드 엔지니어를 채용하는 공고입니다.

[요구 역량/기술/경험]
- Go 서버 개발
- 대규모 트래픽 처리`
	}
}

func newTestStages(llm model.ToolCallingChatModel, sessionID string) []Stage {
	return []Stage{
		NewJDAnalyzerAgent(llm, nil, false, 0, sessionID),
		NewResumeAnalyzerAgent(llm, nil, false, 0, sessionID),
		NewInterviewerAgent(llm, nil, false, 0, sessionID),
		NewJudgeAgent(llm, nil, false, 0, sessionID),
	}
}

// TestPipelineRunFull 验证完整流水线：四阶段串行执行，状态按序推进
func TestPipelineRunFull(t *testing.T) {
	llm := &mockChatModel{}
	state := types.NewInterviewState("백엔드 엔지니어", "김지원", "JD 본문", "이력서 본문", 3, "backend")

	pipeline := NewPipeline("test-session", newTestStages(llm, "test-session")...)
	result, err := pipeline.RunFull(context.Background(), state)
	require.NoError(t, err)

	// JD分析结果
	assert.Equal(t, "백엔드 엔지니어를 채용하는 공고입니다.", result.JDSummary)
	assert.Equal(t, []string{"Go 서버 개발", "대규모 트래픽 처리"}, result.JDRequirements)

	// 简历分析结果
	assert.Equal(t, "백엔드 개발 5년차 지원자입니다.", result.CandidateSummary)
	assert.Equal(t, []string{"Go", "MySQL", "Redis"}, result.CandidateSkills)

	// 问题生成：恰好TotalQuestions个，答案为空
	require.Len(t, result.QAHistory, 3)
	for _, turn := range result.QAHistory {
		assert.Empty(t, turn.Answer)
		assert.NotEmpty(t, turn.Question)
		assert.Equal(t, types.AgentInterviewer, turn.Interviewer)
	}
	assert.Equal(t, "기술", result.QAHistory[0].Category)

	// 评估结果
	require.NotNil(t, result.Evaluation)
	assert.Equal(t, "Hire - 기술 면접 통과 수준입니다.", result.Evaluation.Recommendation)
	assert.Equal(t, 4.0, result.Evaluation.Scores["커뮤니케이션"])

	assert.Equal(t, types.StatusDone, result.Status)
	assert.Equal(t, types.AgentJudge, result.PrevAgent)
	assert.Len(t, llm.calls, 4)
}

// TestPipelineQuestionCountCapped 验证模型多生成的问题被截断到目标数量
func TestPipelineQuestionCountCapped(t *testing.T) {
	llm := &mockChatModel{}
	state := types.NewInterviewState("백엔드 엔지니어", "김지원", "JD 본문", "이력서 본문", 2, "backend")

	pipeline := NewPipeline("test-session", newTestStages(llm, "test-session")...)
	result, err := pipeline.RunFull(context.Background(), state)
	require.NoError(t, err)

	assert.Len(t, result.QAHistory, 2)
	assert.Equal(t, 2, result.CurrentQuestionIndex)
}

// TestPipelineStageFailure 验证阶段失败时整次运行失败
func TestPipelineStageFailure(t *testing.T) {
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			return "", fmt.Errorf("模拟LLM服务不可用")
		},
	}
	state := types.NewInterviewState("백엔드 엔지니어", "김지원", "JD 본문", "이력서 본문", 3, "backend")

	pipeline := NewPipeline("test-session", newTestStages(llm, "test-session")...)
	_, err := pipeline.RunFull(context.Background(), state)

	require.Error(t, err)
	assert.Contains(t, err.Error(), types.AgentJDAnalyzer)
	// 重试一次后放弃：首阶段共调用两次
	assert.Len(t, llm.calls, 2)
}

// TestPipelineMalformedOutputFallback 验证模型输出完全不含段落头时的回退行为
func TestPipelineMalformedOutputFallback(t *testing.T) {
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "[질문 리스트]") || strings.Contains(prompt, "[최종 추천]") {
				return defaultStageResponse(prompt), nil
			}
			return "형식을 무시한 자유 서술 응답입니다.", nil
		},
	}
	state := types.NewInterviewState("백엔드 엔지니어", "김지원", "JD 본문", "이력서 본문", 3, "backend")

	pipeline := NewPipeline("test-session", newTestStages(llm, "test-session")...)
	result, err := pipeline.RunFull(context.Background(), state)
	require.NoError(t, err)

	// 整个原文回退为摘要，列表为空
	assert.Equal(t, "형식을 무시한 자유 서술 응답입니다.", result.JDSummary)
	assert.Empty(t, result.JDRequirements)
	assert.Equal(t, "형식을 무시한 자유 서술 응답입니다.", result.CandidateSummary)
	assert.Empty(t, result.CandidateSkills)
	assert.Equal(t, types.StatusDone, result.Status)
}

// TestPipelineRunJudgeOnly 验证部分重跑：替换问答后只重跑评估阶段
func TestPipelineRunJudgeOnly(t *testing.T) {
	llm := &mockChatModel{}
	state := types.NewInterviewState("백엔드 엔지니어", "김지원", "JD 본문", "이력서 본문", 3, "backend")

	pipeline := NewPipeline("test-session", newTestStages(llm, "test-session")...)
	result, err := pipeline.RunFull(context.Background(), state)
	require.NoError(t, err)
	firstEval := result.Evaluation
	require.NotNil(t, firstEval)

	// 填入答案后重新评估
	for i := range result.QAHistory {
		result.QAHistory[i].Answer = fmt.Sprintf("%d번 질문에 대한 답변입니다.", i+1)
	}

	judge := NewJudgeAgent(llm, nil, false, 0, "test-session")
	rejudged, err := pipeline.RunJudgeOnly(context.Background(), judge, result)
	require.NoError(t, err)

	require.NotNil(t, rejudged.Evaluation)
	assert.Equal(t, types.StatusDone, rejudged.Status)
	assert.Equal(t, types.AgentJudge, rejudged.PrevAgent)

	// 前置阶段的分析结果原样保留
	assert.Equal(t, "백엔드 엔지니어를 채용하는 공고입니다.", rejudged.JDSummary)
	assert.Equal(t, []string{"Go", "MySQL", "Redis"}, rejudged.CandidateSkills)

	// 评估提示词包含答案
	lastPrompt := llm.calls[len(llm.calls)-1]
	assert.Contains(t, lastPrompt, "1번 질문에 대한 답변입니다.")

	// 四阶段 + 一次重新评估
	assert.Len(t, llm.calls, 5)
}

// TestRenderQAHistory 验证问答记录渲染
func TestRenderQAHistory(t *testing.T) {
	assert.Equal(t, "(질문/답변 기록 없음)", renderQAHistory(nil))

	history := []types.QATurn{
		{Category: "기술", Question: "질문1", Answer: "답변1"},
		{Category: "협업", Question: "질문2"},
	}
	rendered := renderQAHistory(history)

	assert.Contains(t, rendered, "Q1. [기술] 질문1")
	assert.Contains(t, rendered, "A1. 답변1")
	assert.Contains(t, rendered, "A2. (답변 없음)")
}
