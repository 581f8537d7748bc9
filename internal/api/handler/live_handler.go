package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/gofrs/uuid/v5"

	"interview-agent-go/internal/agent"
	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/storage"
	"interview-agent-go/internal/types"
)

// LiveHandler 实时面试处理器。
// 与一次性流水线不同，实时模式把面试拆成多次交互：
// start生成问题后立刻返回第一个问题，答案逐题提交，end触发评估。
// 会话状态存在Redis中并带TTL，过期即视为放弃。
type LiveHandler struct {
	cfg            *config.Config
	storage        *storage.Storage
	llm            model.ToolCallingChatModel
	miniLLM        model.ToolCallingChatModel
	augmenter      agent.Augmenter
	roleClassifier *agent.RoleClassifier
	availableRoles []string
}

// NewLiveHandler 创建实时面试处理器
func NewLiveHandler(
	cfg *config.Config,
	storageManager *storage.Storage,
	llm model.ToolCallingChatModel,
	miniLLM model.ToolCallingChatModel,
	augmenter agent.Augmenter,
	availableRoles []string,
) *LiveHandler {
	return &LiveHandler{
		cfg:            cfg,
		storage:        storageManager,
		llm:            llm,
		miniLLM:        miniLLM,
		augmenter:      augmenter,
		roleClassifier: agent.NewRoleClassifier(miniLLM),
		availableRoles: availableRoles,
	}
}

// LiveStartResponse 实时面试启动响应：返回首个问题
type LiveStartResponse struct {
	SessionID      string `json:"session_id"`
	TotalQuestions int    `json:"total_questions"`
	QuestionIndex  int    `json:"question_index"`
	Question       string `json:"question"`
	Category       string `json:"category"`
}

// HandleStart 启动实时面试：执行前三个阶段（JD分析/简历分析/问题生成），
// 把会话状态写入Redis后返回第一个问题。评估阶段留到end时执行。
func (h *LiveHandler) HandleStart(ctx context.Context, req *RunRequest) (*LiveStartResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if h.storage == nil || h.storage.Redis == nil {
		return nil, fmt.Errorf("Redis未配置，无法启动实时面试")
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成会话ID失败: %w", err)
	}
	sessionID := uuidV7.String()

	totalQuestions := req.TotalQuestions
	if totalQuestions <= 0 {
		totalQuestions = constants.DefaultTotalQuestions
	}

	jobRole := req.JobRole
	if jobRole == "" {
		jobRole = h.roleClassifier.Classify(ctx, req.JobTitle, req.JDText, h.availableRoles)
	}
	state := types.NewInterviewState(req.JobTitle, req.CandidateName, req.JDText, req.ResumeText, totalQuestions, jobRole)

	llm := h.llm
	if req.UseMini && h.miniLLM != nil {
		llm = h.miniLLM
	}
	useRAG := h.cfg.RAG.Enabled && h.augmenter != nil
	k := h.cfg.RAG.TopK

	pipeline := agent.NewPipeline(sessionID,
		agent.NewJDAnalyzerAgent(llm, h.augmenter, useRAG, k, sessionID),
		agent.NewResumeAnalyzerAgent(llm, h.augmenter, useRAG, k, sessionID),
		agent.NewInterviewerAgent(llm, h.augmenter, useRAG, k, sessionID),
	)

	logger.Info().
		Str("session_id", sessionID).
		Str("job_title", req.JobTitle).
		Str("job_role", jobRole).
		Msg("启动实时面试")

	result, err := pipeline.RunFull(ctx, state)
	if err != nil {
		return nil, err
	}
	if len(result.QAHistory) == 0 {
		return nil, fmt.Errorf("问题生成阶段未产出任何问题")
	}

	// 实时模式下下标指向下一个待回答的问题
	result.CurrentQuestionIndex = 0

	if err := h.storage.Redis.PutLiveSession(ctx, sessionID, result); err != nil {
		return nil, fmt.Errorf("写入实时会话失败: %w", err)
	}

	first := result.QAHistory[0]
	return &LiveStartResponse{
		SessionID:      sessionID,
		TotalQuestions: len(result.QAHistory),
		QuestionIndex:  0,
		Question:       first.Question,
		Category:       first.Category,
	}, nil
}

// LiveAnswerRequest 答案提交请求
type LiveAnswerRequest struct {
	Answer          string `json:"answer"`
	RequestFollowUp bool   `json:"request_follow_up"`
}

// LiveAnswerResponse 答案提交响应：返回下一个问题或结束标记
type LiveAnswerResponse struct {
	SessionID     string `json:"session_id"`
	Finished      bool   `json:"finished"`
	QuestionIndex int    `json:"question_index,omitempty"`
	Question      string `json:"question,omitempty"`
	Category      string `json:"category,omitempty"`
	FollowUp      string `json:"follow_up,omitempty"`
}

// HandleSubmitAnswer 记录当前问题的答案并推进到下一题。
// RequestFollowUp为true时会基于这对问答生成追问并插入问题列表，
// 追问成为紧接着的下一个待回答问题。
func (h *LiveHandler) HandleSubmitAnswer(ctx context.Context, sessionID string, req *LiveAnswerRequest) (*LiveAnswerResponse, error) {
	if h.storage == nil || h.storage.Redis == nil {
		return nil, fmt.Errorf("Redis未配置，无法提交答案")
	}
	if req.Answer == "" {
		return nil, fmt.Errorf("答案不能为空")
	}

	state, err := h.storage.Redis.GetLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	idx := state.CurrentQuestionIndex
	if idx < 0 || idx >= len(state.QAHistory) {
		return nil, fmt.Errorf("没有待回答的问题, sessionID=%s", sessionID)
	}

	state.QAHistory[idx].Answer = req.Answer

	followUp := ""
	if req.RequestFollowUp {
		gen := agent.NewFollowUpGenerator(h.llm, sessionID)
		generated, genErr := gen.Generate(ctx, state.JobTitle, state.QAHistory[idx].Question, req.Answer, state.QAHistory[idx].Category)
		if genErr != nil {
			// 追问生成失败不中断面试，继续下一题
			logger.Warn().Err(genErr).Str("session_id", sessionID).Msg("追问生成失败，继续原问题列表")
		} else if state.AppendFollowUp(idx, generated, state.QAHistory[idx].Category) {
			followUp = generated
			// 追问从列表末尾移到当前问题之后，成为下一个待回答的问题
			last := len(state.QAHistory) - 1
			turn := state.QAHistory[last]
			copy(state.QAHistory[idx+2:], state.QAHistory[idx+1:last])
			state.QAHistory[idx+1] = turn
		}
	}

	state.CurrentQuestionIndex = idx + 1

	if err := h.storage.Redis.PutLiveSession(ctx, sessionID, state); err != nil {
		return nil, fmt.Errorf("更新实时会话失败: %w", err)
	}

	resp := &LiveAnswerResponse{
		SessionID: sessionID,
		FollowUp:  followUp,
	}
	if state.CurrentQuestionIndex >= len(state.QAHistory) {
		resp.Finished = true
		return resp, nil
	}

	next := state.QAHistory[state.CurrentQuestionIndex]
	resp.QuestionIndex = state.CurrentQuestionIndex
	resp.Question = next.Question
	resp.Category = next.Category
	return resp, nil
}

// LiveEndRequest 面试结束请求
type LiveEndRequest struct {
	UseMini     bool `json:"use_mini"`
	SaveHistory bool `json:"save_history"`
}

// HandleEnd 结束实时面试：执行评估阶段，按需持久化到MySQL，删除Redis会话
func (h *LiveHandler) HandleEnd(ctx context.Context, sessionID string, req *LiveEndRequest) (*RunResponse, error) {
	if h.storage == nil || h.storage.Redis == nil {
		return nil, fmt.Errorf("Redis未配置，无法结束实时面试")
	}

	state, err := h.storage.Redis.GetLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	llm := h.llm
	if req.UseMini && h.miniLLM != nil {
		llm = h.miniLLM
	}
	useRAG := h.cfg.RAG.Enabled && h.augmenter != nil
	judge := agent.NewJudgeAgent(llm, h.augmenter, useRAG, h.cfg.RAG.TopK, sessionID)

	pipeline := agent.NewPipeline(sessionID)
	result, err := pipeline.RunJudgeOnly(ctx, judge, state)
	if err != nil {
		return nil, err
	}

	if req.SaveHistory {
		if h.storage.MySQL == nil {
			logger.Warn().Str("session_id", sessionID).Msg("MySQL未配置，跳过历史记录保存")
		} else if err := h.storage.MySQL.SaveInterview(ctx, sessionID, result); err != nil {
			logger.Error().Err(err).Str("session_id", sessionID).Msg("保存面试记录失败")
		}
	}

	if err := h.storage.Redis.DeleteLiveSession(ctx, sessionID); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("删除实时会话失败")
	}

	return &RunResponse{
		SessionID: sessionID,
		State:     result,
	}, nil
}

// HandleGetSession 查询进行中的实时面试会话状态
func (h *LiveHandler) HandleGetSession(ctx context.Context, sessionID string) (*types.InterviewState, error) {
	if h.storage == nil || h.storage.Redis == nil {
		return nil, fmt.Errorf("Redis未配置，无法查询实时会话")
	}
	return h.storage.Redis.GetLiveSession(ctx, sessionID)
}
