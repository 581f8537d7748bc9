package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/types"
)

// roleKeywords 各职位方向的启发式关键词表。
// 关键词命中计1分，role名本身命中计3分，得分最高者胜出。
var roleKeywords = map[string][]string{
	"frontend": {
		"frontend", "front-end", "react", "vue", "next.js", "typescript",
		"ui/ux", "api 연동", "api 호출", "rest api 연동", "프론트엔드",
	},
	"backend": {
		"backend", "back-end", "spring", "django", "node.js", "backend api",
		"api 서버", "rest api 서버", "database 설계", "db 설계",
	},
	"product_manager": {
		"product manager", "product management", "프로덕트 매니저", "프로젝트 매니저",
		"pm", "prd", "roadmap", "go-to-market", "제품 전략", "제품 로드맵", "사용자 스토리",
	},
	"qa": {
		"qa", "quality assurance", "tester", "test automation", "selenium", "playwright",
	},
	"data": {
		"data scientist", "data engineer", "analytics", "etl", "warehouse",
	},
	"ml_ai": {
		"machine learning", "ml ", "ai ", "딥러닝", "lstm", "gpt",
	},
	"devops": {
		"devops", "sre", "infrastructure", "kubernetes", "docker",
	},
	"design": {
		"designer", "design system", "visual", "ux", "ui",
	},
}

// RoleClassifier 根据JD推断职位方向标签。
// 标签仅用作知识库检索的过滤键和提示词上下文；
// 识别失败一律落到general，从不报错。
type RoleClassifier struct {
	llm model.ToolCallingChatModel // 可为nil，此时只用关键词匹配
}

// NewRoleClassifier 创建职位方向分类器
func NewRoleClassifier(llm model.ToolCallingChatModel) *RoleClassifier {
	return &RoleClassifier{llm: llm}
}

// Classify 推断职位方向。
// 以JD为准（评估基准是招聘方向而非候选人背景），优先级：
// JD关键词 → 职位名关键词 → 两者合并 → LLM判断 → general。
func (c *RoleClassifier) Classify(ctx context.Context, jobTitle, jdText string, availableRoles []string) string {
	if len(availableRoles) == 0 {
		return types.DefaultJobRole
	}

	if role := heuristicMatch(jdText, availableRoles); role != "" {
		return role
	}
	if role := heuristicMatch(jobTitle, availableRoles); role != "" {
		return role
	}
	if role := heuristicMatch(jobTitle+"\n"+jdText, availableRoles); role != "" {
		return role
	}

	if c.llm != nil {
		if role := c.classifyWithLLM(ctx, jobTitle, jdText, availableRoles); role != "" {
			return role
		}
	}

	for _, role := range availableRoles {
		if role == types.DefaultJobRole {
			return types.DefaultJobRole
		}
	}
	return availableRoles[0]
}

// heuristicMatch 分数制关键词匹配。无任何命中时返回空串。
func heuristicMatch(text string, availableRoles []string) string {
	lowered := strings.ToLower(text)

	bestRole := ""
	bestScore := 0
	for _, role := range availableRoles {
		keywords := append([]string{}, roleKeywords[role]...)
		keywords = append(keywords, strings.ToLower(role))

		score := 0
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				if keyword == strings.ToLower(role) {
					score += 3
				} else {
					score++
				}
			}
		}
		if score > bestScore {
			bestScore = score
			bestRole = role
		}
	}

	return bestRole
}

// classifyWithLLM 关键词全部落空时用轻量模型兜底判断。
// 只看JD，不看简历。任何失败返回空串。
func (c *RoleClassifier) classifyWithLLM(ctx context.Context, jobTitle, jdText string, availableRoles []string) string {
	ctx, cancel := context.WithTimeout(ctx, constants.LLMCallTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`아래 채용공고(JD)를 보고 모집하는 직군을 선택하세요.
중요: 채용공고가 모집하는 역할을 기준으로 판단하세요. 지원자의 이력서는 고려하지 마세요.
가능한 직군 목록: %s
응답 형식은 JSON으로 {"role": "직군"} 만 출력하세요.

[Job Title]
%s

[JD]
%s`, strings.Join(availableRoles, ", "), jobTitle, truncateForPrompt(jdText, 2000))

	msg, err := c.llm.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("职位方向LLM分类失败，使用默认标签")
		return ""
	}

	for _, role := range availableRoles {
		if strings.Contains(msg.Content, role) {
			return role
		}
	}
	return ""
}

func truncateForPrompt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
