package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseSectionsBasic 验证良构输出按段落头正确切分
func TestParseSectionsBasic(t *testing.T) {
	raw := `서론 텍스트는 무시됩니다.

[요약]
지원자는 백엔드 경력 5년의 개발자입니다.
핵심 역량이 JD와 잘 맞습니다.

[강점]
- 대규모 트래픽 처리 경험
- 코드 리뷰 문화 주도

[약점]
- 프론트엔드 경험 부족
`

	parsed := parseSections(raw, "[요약]", "[강점]", "[약점]")

	assert.Equal(t, "지원자는 백엔드 경력 5년의 개발자입니다.\n핵심 역량이 JD와 잘 맞습니다.", parsed.text("[요약]"))
	assert.Equal(t, []string{"대규모 트래픽 처리 경험", "코드 리뷰 문화 주도"}, parsed.bullets("[강점]"))
	assert.Equal(t, []string{"프론트엔드 경험 부족"}, parsed.bullets("[약점]"))
}

// TestParseSectionsPrefixMatch 验证段落头按前缀匹配变体
func TestParseSectionsPrefixMatch(t *testing.T) {
	raw := `[JD 요약]
백엔드 엔지니어 채용.

[요구 역량/기술/경험]
- Go 서버 개발
- MySQL 운영 경험
`

	parsed := parseSections(raw, "[JD 요약]", "[요구 역량")

	assert.Equal(t, "백엔드 엔지니어 채용.", parsed.text("[JD 요약]"))
	assert.Equal(t, []string{"Go 서버 개발", "MySQL 운영 경험"}, parsed.bullets("[요구 역량"))
}

// TestParseSectionsMalformed 验证完全不含段落头的输出：解析不报错，各段为空
func TestParseSectionsMalformed(t *testing.T) {
	raw := "모델이 형식을 지키지 않고 자유롭게 서술한 응답입니다."

	parsed := parseSections(raw, "[요약]", "[강점]")

	assert.Empty(t, parsed.text("[요약]"))
	assert.Empty(t, parsed.bullets("[강점]"))
	// 摘要段缺失时调用方用textOr整体回退
	assert.Equal(t, raw, parsed.textOr("[요약]", raw))
}

// TestParseScoreLine 验证分数行的各种形状
func TestParseScoreLine(t *testing.T) {
	label, score, max, ok := parseScoreLine("- 커뮤니케이션: 4/5")
	require.True(t, ok)
	assert.Equal(t, "커뮤니케이션", label)
	assert.Equal(t, 4.0, score)
	assert.Equal(t, 5.0, max)

	// 满分缺省
	label, score, max, ok = parseScoreLine("문제해결: 3.5")
	require.True(t, ok)
	assert.Equal(t, "문제해결", label)
	assert.Equal(t, 3.5, score)
	assert.Equal(t, 0.0, max)

	// 小数满分 + 尾注
	_, score, max, ok = parseScoreLine("- 프로젝트 계획 및 일정 관리: 22.5/30 (우수)")
	require.True(t, ok)
	assert.Equal(t, 22.5, score)
	assert.Equal(t, 30.0, max)

	// 非分数行被跳过
	_, _, _, ok = parseScoreLine("이 줄은 점수가 아닙니다")
	assert.False(t, ok)
	_, _, _, ok = parseScoreLine("- 항목: 점수없음")
	assert.False(t, ok)
}

// TestSectionScores 验证分数表解析跳过坏行
func TestSectionScores(t *testing.T) {
	raw := `[점수표]
- 커뮤니케이션: 4/5
- 문제해결: 3/5
설명 줄은 무시됩니다.
- 리더십: 2/5
`

	parsed := parseSections(raw, "[점수표]")
	scores := parsed.scores("[점수표]")

	assert.Len(t, scores, 3)
	assert.Equal(t, 4.0, scores["커뮤니케이션"])
	assert.Equal(t, 2.0, scores["리더십"])
}

// TestSectionDetailedScores 验证细分分数表保留满分与比例
func TestSectionDetailedScores(t *testing.T) {
	raw := `[상세 점수표]
- 프로젝트 계획 및 일정 관리: 22.5/30
- 이해관계자 커뮤니케이션: 12/20
`

	parsed := parseSections(raw, "[상세 점수표]")
	details := parsed.detailedScores("[상세 점수표]")

	require.Len(t, details, 2)
	assert.Equal(t, 22.5, details["프로젝트 계획 및 일정 관리"].Score)
	assert.Equal(t, 30.0, details["프로젝트 계획 및 일정 관리"].Max)
	assert.InDelta(t, 0.75, details["프로젝트 계획 및 일정 관리"].Ratio, 1e-9)
	assert.InDelta(t, 0.6, details["이해관계자 커뮤니케이션"].Ratio, 1e-9)
}

// TestSectionFloatAndYesNo 验证品质分数与肯定判定解析
func TestSectionFloatAndYesNo(t *testing.T) {
	raw := `[품질 점수]
0.35

[웹 검색 필요]
예

[웹 검색 쿼리]
백엔드 면접 평가 기준
`

	parsed := parseSections(raw, "[품질 점수]", "[웹 검색 필요]", "[웹 검색 쿼리]")

	assert.Equal(t, 0.35, parsed.float("[품질 점수]", 0.5))
	assert.True(t, parsed.yesNo("[웹 검색 필요]"))
	assert.Equal(t, "백엔드 면접 평가 기준", parsed.text("[웹 검색 쿼리]"))

	// 解析失败回退默认值
	empty := parseSections("형식 없는 응답", "[품질 점수]", "[웹 검색 필요]")
	assert.Equal(t, 0.5, empty.float("[품질 점수]", 0.5))
	assert.False(t, empty.yesNo("[웹 검색 필요]"))
}

// TestParseNumberedQuestions 验证编号问题行解析
func TestParseNumberedQuestions(t *testing.T) {
	raw := `생성된 질문입니다.

[질문 리스트]
1. (카테고리: 기술) 대규모 트래픽을 처리한 경험을 설명해주세요.
2. (카테고리: 협업) 갈등 상황을 해결한 사례가 있나요?
부가 설명 줄은 무시됩니다.
3. 카테고리 없는 질문도 허용됩니다.
`

	items := parseNumberedQuestions(raw, "[질문 리스트]")

	require.Len(t, items, 3)
	assert.Equal(t, "기술", items[0].Category)
	assert.Equal(t, "대규모 트래픽을 처리한 경험을 설명해주세요.", items[0].Text)
	assert.Equal(t, "협업", items[1].Category)
	assert.Empty(t, items[2].Category)
	assert.Equal(t, "카테고리 없는 질문도 허용됩니다.", items[2].Text)
}

// TestParseNumberedQuestionsNoHeader 验证段落头缺失时不产出任何问题
func TestParseNumberedQuestionsNoHeader(t *testing.T) {
	raw := `1. 헤더가 없으면 목록으로 취급하지 않습니다.`

	items := parseNumberedQuestions(raw, "[질문 리스트]")
	assert.Empty(t, items)
}

// TestParseEvaluation 验证评估报告的完整解析路径
func TestParseEvaluation(t *testing.T) {
	raw := `[요약]
전반적으로 우수한 지원자입니다.

[강점]
- 깊이 있는 기술 이해

[약점]
- 리더십 경험 부족

[점수표]
- 커뮤니케이션: 4/5
- 문제해결: 3/5

[최종 추천]
Hire - 기술 역량이 검증되었습니다.
`

	eval := parseEvaluation(raw)

	assert.Equal(t, "전반적으로 우수한 지원자입니다.", eval.Summary)
	assert.Equal(t, []string{"깊이 있는 기술 이해"}, eval.Strengths)
	assert.Equal(t, []string{"리더십 경험 부족"}, eval.Weaknesses)
	assert.Equal(t, "Hire - 기술 역량이 검증되었습니다.", eval.Recommendation)
	assert.Equal(t, 4.0, eval.Scores["커뮤니케이션"])
	assert.Nil(t, eval.Transition)
	assert.Equal(t, raw, eval.RawText)
}

// TestParseEvaluationWithTransition 验证跨职位转型场景的附加段落解析
func TestParseEvaluationWithTransition(t *testing.T) {
	raw := `[요약]
프론트엔드 출신의 PM 지원자입니다.

[점수표]
- 제품 감각: 3/5

[최종 추천]
No Hire - 직군 전환 격차가 큽니다.

[상세 점수표]
- 프로젝트 계획 및 일정 관리: 15/30

[전환 가능성]
중간 (0.5)

[현재 배경]
프론트엔드 개발 4년

[목표 직군]
프로덕트 매니저

[전환 격차]
- 이해관계자 관리 경험 없음

[전환 제안]
- 사내 PM 협업 프로젝트 참여
`

	eval := parseEvaluation(raw)

	require.NotNil(t, eval.Transition)
	assert.Equal(t, "중간", eval.Transition.Likelihood)
	assert.Equal(t, 0.5, eval.Transition.LikelihoodScore)
	assert.Equal(t, "프론트엔드 개발 4년", eval.Transition.CurrentBackground)
	assert.Equal(t, "프로덕트 매니저", eval.Transition.TargetRole)
	assert.Equal(t, []string{"이해관계자 관리 경험 없음"}, eval.Transition.Gaps)
	assert.Len(t, eval.DetailedScores, 1)
	assert.InDelta(t, 0.5, eval.DetailedScores["프로젝트 계획 및 일정 관리"].Ratio, 1e-9)
}

// TestParseEvaluationFallback 验证无段落头的输出整体回退为摘要
func TestParseEvaluationFallback(t *testing.T) {
	raw := "모델이 형식을 완전히 무시한 자유 서술 평가입니다."

	eval := parseEvaluation(raw)

	assert.Equal(t, raw, eval.Summary)
	assert.Empty(t, eval.Strengths)
	assert.Empty(t, eval.Scores)
	assert.Equal(t, raw, eval.RawText)
}

// TestParseLikelihood 验证转型可能性行解析
func TestParseLikelihood(t *testing.T) {
	label, score := parseLikelihood("높음 (0.7)")
	assert.Equal(t, "높음", label)
	assert.Equal(t, 0.7, score)

	// 分数缺省
	label, score = parseLikelihood("낮음")
	assert.Equal(t, "낮음", label)
	assert.Equal(t, 0.0, score)
}
