package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFollowUpGenerate 验证追问生成使用问答对构造提示词
func TestFollowUpGenerate(t *testing.T) {
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			return "  해당 장애의 근본 원인을 어떻게 찾아냈나요?  ", nil
		},
	}
	gen := NewFollowUpGenerator(llm, "test-session")

	followUp, err := gen.Generate(context.Background(),
		"백엔드 엔지니어",
		"장애 대응 경험을 설명해주세요.",
		"작년에 대규모 장애를 직접 복구했습니다.",
		"기술")
	require.NoError(t, err)

	// 前后空白被裁剪
	assert.Equal(t, "해당 장애의 근본 원인을 어떻게 찾아냈나요?", followUp)

	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0], "장애 대응 경험을 설명해주세요.")
	assert.Contains(t, llm.calls[0], "작년에 대규모 장애를 직접 복구했습니다.")
	assert.Contains(t, llm.calls[0], "카테고리: 기술")
}

// TestFollowUpGenerateEmptyCategory 验证空类别回退为"일반"
func TestFollowUpGenerateEmptyCategory(t *testing.T) {
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			return "후속 질문입니다.", nil
		},
	}
	gen := NewFollowUpGenerator(llm, "test-session")

	_, err := gen.Generate(context.Background(), "백엔드 엔지니어", "질문", "답변", "")
	require.NoError(t, err)
	assert.Contains(t, llm.calls[0], "카테고리: 일반")
}

// TestFollowUpGenerateEmptyResult 验证空响应视为错误
func TestFollowUpGenerateEmptyResult(t *testing.T) {
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			return "   ", nil
		},
	}
	gen := NewFollowUpGenerator(llm, "test-session")

	_, err := gen.Generate(context.Background(), "백엔드 엔지니어", "질문", "답변", "기술")
	assert.Error(t, err)
}

// TestFollowUpGenerateRetry 验证瞬时失败后重试成功
func TestFollowUpGenerateRetry(t *testing.T) {
	attempts := 0
	llm := &mockChatModel{
		respond: func(prompt string) (string, error) {
			attempts++
			if attempts == 1 {
				return "", fmt.Errorf("일시적 오류")
			}
			return "후속 질문입니다.", nil
		},
	}
	gen := NewFollowUpGenerator(llm, "test-session")

	followUp, err := gen.Generate(context.Background(), "백엔드 엔지니어", "질문", "답변", "기술")
	require.NoError(t, err)
	assert.Equal(t, "후속 질문입니다.", followUp)
	assert.Equal(t, 2, attempts)
}
