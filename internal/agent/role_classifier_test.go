package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testRoles = []string{"frontend", "backend", "product_manager", "general"}

// TestClassifyByJDKeywords 验证JD关键词优先于职位名
func TestClassifyByJDKeywords(t *testing.T) {
	c := NewRoleClassifier(nil)

	role := c.Classify(context.Background(), "개발자",
		"React와 TypeScript 기반의 프론트엔드 개발자를 모집합니다. UI/UX 개선 경험 우대.", testRoles)
	assert.Equal(t, "frontend", role)

	role = c.Classify(context.Background(), "개발자",
		"Spring 기반 API 서버 개발 및 DB 설계 경험자를 찾습니다.", testRoles)
	assert.Equal(t, "backend", role)
}

// TestClassifyByJobTitle 验证JD无特征时回退到职位名
func TestClassifyByJobTitle(t *testing.T) {
	c := NewRoleClassifier(nil)

	role := c.Classify(context.Background(), "Product Manager",
		"우수한 인재를 모집합니다.", testRoles)
	assert.Equal(t, "product_manager", role)
}

// TestClassifyFallbackToGeneral 验证无任何命中且无LLM时落到general
func TestClassifyFallbackToGeneral(t *testing.T) {
	c := NewRoleClassifier(nil)

	role := c.Classify(context.Background(), "채용 담당자",
		"좋은 분을 모십니다.", testRoles)
	assert.Equal(t, "general", role)
}

// TestClassifyWithLLMFallback 验证关键词落空时LLM兜底
func TestClassifyWithLLMFallback(t *testing.T) {
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			return `{"role": "backend"}`, nil
		},
	}
	c := NewRoleClassifier(llm)

	role := c.Classify(context.Background(), "채용 담당자",
		"좋은 분을 모십니다.", testRoles)
	assert.Equal(t, "backend", role)
	assert.Len(t, llm.calls, 1)
}

// TestClassifyEmptyRoles 验证知识库无职位目录时直接返回默认标签
func TestClassifyEmptyRoles(t *testing.T) {
	c := NewRoleClassifier(nil)

	role := c.Classify(context.Background(), "백엔드 엔지니어", "Spring API 서버 개발", nil)
	assert.Equal(t, "general", role)
}

// TestHeuristicMatchRoleNameWeight 验证role名本身命中的权重高于单个关键词
func TestHeuristicMatchRoleNameWeight(t *testing.T) {
	// "backend" 名称直接命中(3分) vs frontend关键词一个命中(1分)
	role := heuristicMatch("backend 포지션, react 경험 우대", testRoles)
	assert.Equal(t, "backend", role)
}
