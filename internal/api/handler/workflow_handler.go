package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/gofrs/uuid/v5"

	"interview-agent-go/internal/agent"
	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/storage"
	"interview-agent-go/internal/storage/models"
	"interview-agent-go/internal/types"
)

// WorkflowHandler 面试工作流处理器。
// 负责一次性的完整流水线执行、历史记录的部分重跑（重新评估）和追问生成。
type WorkflowHandler struct {
	cfg            *config.Config
	storage        *storage.Storage
	llm            model.ToolCallingChatModel
	miniLLM        model.ToolCallingChatModel
	augmenter      agent.Augmenter
	roleClassifier *agent.RoleClassifier
	availableRoles []string
}

// NewWorkflowHandler 创建工作流处理器。
// miniLLM为nil时use_mini请求回退到主模型；augmenter为nil时检索增强整体关闭。
func NewWorkflowHandler(
	cfg *config.Config,
	storageManager *storage.Storage,
	llm model.ToolCallingChatModel,
	miniLLM model.ToolCallingChatModel,
	augmenter agent.Augmenter,
	availableRoles []string,
) *WorkflowHandler {
	return &WorkflowHandler{
		cfg:            cfg,
		storage:        storageManager,
		llm:            llm,
		miniLLM:        miniLLM,
		augmenter:      augmenter,
		roleClassifier: agent.NewRoleClassifier(miniLLM),
		availableRoles: availableRoles,
	}
}

// RunRequest 完整流水线执行请求
type RunRequest struct {
	JobTitle       string `json:"job_title"`
	CandidateName  string `json:"candidate_name"`
	JDText         string `json:"jd_text"`
	ResumeText     string `json:"resume_text"`
	TotalQuestions int    `json:"total_questions"`
	JobRole        string `json:"job_role"`
	UseMini        bool   `json:"use_mini"`
	SaveHistory    bool   `json:"save_history"`
}

// RunResponse 完整流水线执行响应
type RunResponse struct {
	SessionID string                `json:"session_id"`
	State     *types.InterviewState `json:"state"`
}

// validate 检查必填字段
func (r *RunRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.JobTitle) == "" {
		missing = append(missing, "job_title")
	}
	if strings.TrimSpace(r.JDText) == "" {
		missing = append(missing, "jd_text")
	}
	if strings.TrimSpace(r.ResumeText) == "" {
		missing = append(missing, "resume_text")
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少必填字段: %s", strings.Join(missing, ", "))
	}
	return nil
}

// chooseModel 按请求选择主模型或轻量模型
func (h *WorkflowHandler) chooseModel(useMini bool) model.ToolCallingChatModel {
	if useMini && h.miniLLM != nil {
		return h.miniLLM
	}
	return h.llm
}

// resolveJobRole 确定职位方向标签：请求显式指定优先，否则按JD推断
func (h *WorkflowHandler) resolveJobRole(ctx context.Context, req *RunRequest) string {
	if req.JobRole != "" {
		return req.JobRole
	}
	return h.roleClassifier.Classify(ctx, req.JobTitle, req.JDText, h.availableRoles)
}

// buildStages 构建标准四阶段流水线
func (h *WorkflowHandler) buildStages(llm model.ToolCallingChatModel, sessionID string) []agent.Stage {
	useRAG := h.cfg.RAG.Enabled && h.augmenter != nil
	k := h.cfg.RAG.TopK

	return []agent.Stage{
		agent.NewJDAnalyzerAgent(llm, h.augmenter, useRAG, k, sessionID),
		agent.NewResumeAnalyzerAgent(llm, h.augmenter, useRAG, k, sessionID),
		agent.NewInterviewerAgent(llm, h.augmenter, useRAG, k, sessionID),
		agent.NewJudgeAgent(llm, h.augmenter, useRAG, k, sessionID),
	}
}

// HandleRun 执行完整面试流水线：JD分析 → 简历分析 → 问题生成 → 评估
func (h *WorkflowHandler) HandleRun(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
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

	jobRole := h.resolveJobRole(ctx, req)
	state := types.NewInterviewState(req.JobTitle, req.CandidateName, req.JDText, req.ResumeText, totalQuestions, jobRole)

	llm := h.chooseModel(req.UseMini)
	pipeline := agent.NewPipeline(sessionID, h.buildStages(llm, sessionID)...)

	logger.Info().
		Str("session_id", sessionID).
		Str("job_title", req.JobTitle).
		Str("job_role", jobRole).
		Bool("use_mini", req.UseMini).
		Msg("开始执行面试流水线")

	result, err := pipeline.RunFull(ctx, state)
	if err != nil {
		return nil, err
	}

	if req.SaveHistory {
		if h.storage == nil || h.storage.MySQL == nil {
			logger.Warn().Str("session_id", sessionID).Msg("MySQL未配置，跳过历史记录保存")
		} else if err := h.storage.MySQL.SaveInterview(ctx, sessionID, result); err != nil {
			// 保存失败不影响已完成的评估结果
			logger.Error().Err(err).Str("session_id", sessionID).Msg("保存面试记录失败")
		}
	}

	return &RunResponse{
		SessionID: sessionID,
		State:     result,
	}, nil
}

// RejudgeRequest 重新评估请求：用新的问答记录替换后只重跑评估阶段
type RejudgeRequest struct {
	QAHistory []types.QATurn `json:"qa_history"`
	UseMini   bool           `json:"use_mini"`
}

// HandleRejudge 重新评估：加载历史记录，替换问答记录，仅重跑评估阶段。
// 之前的分析结果（JD/简历摘要）原样保留，不重复执行前置阶段。
func (h *WorkflowHandler) HandleRejudge(ctx context.Context, sessionID string, req *RejudgeRequest) (*RunResponse, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("MySQL未配置，无法重新评估历史记录")
	}

	state, err := h.storage.MySQL.GetInterview(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if len(req.QAHistory) > 0 {
		state.QAHistory = req.QAHistory
		state.CurrentQuestionIndex = len(req.QAHistory)
	}

	llm := h.chooseModel(req.UseMini)
	useRAG := h.cfg.RAG.Enabled && h.augmenter != nil
	judge := agent.NewJudgeAgent(llm, h.augmenter, useRAG, h.cfg.RAG.TopK, sessionID)

	pipeline := agent.NewPipeline(sessionID)
	result, err := pipeline.RunJudgeOnly(ctx, judge, state)
	if err != nil {
		return nil, err
	}

	if err := h.storage.MySQL.SaveInterview(ctx, sessionID, result); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("更新面试记录失败")
	}

	return &RunResponse{
		SessionID: sessionID,
		State:     result,
	}, nil
}

// FollowUpRequest 追问生成请求。
// Answer非空时覆盖记录中的答案；Append为true时把生成的追问写回记录。
type FollowUpRequest struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
	Append        bool   `json:"append"`
	UseMini       bool   `json:"use_mini"`
}

// FollowUpResponse 追问生成响应
type FollowUpResponse struct {
	SessionID  string `json:"session_id"`
	FollowUp   string `json:"follow_up"`
	Appended   bool   `json:"appended"`
	ParentIdx  int    `json:"parent_index"`
	Category   string `json:"category"`
}

// HandleFollowUp 基于历史记录中的一对问答生成追问
func (h *WorkflowHandler) HandleFollowUp(ctx context.Context, sessionID string, req *FollowUpRequest) (*FollowUpResponse, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("MySQL未配置，无法加载历史记录")
	}

	state, err := h.storage.MySQL.GetInterview(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if req.QuestionIndex < 0 || req.QuestionIndex >= len(state.QAHistory) {
		return nil, fmt.Errorf("问题下标越界: %d (共%d个问题)", req.QuestionIndex, len(state.QAHistory))
	}

	turn := state.QAHistory[req.QuestionIndex]
	answer := req.Answer
	if answer == "" {
		answer = turn.Answer
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("问题 %d 没有答案，无法生成追问", req.QuestionIndex)
	}

	gen := agent.NewFollowUpGenerator(h.chooseModel(req.UseMini), sessionID)
	followUp, err := gen.Generate(ctx, state.JobTitle, turn.Question, answer, turn.Category)
	if err != nil {
		return nil, err
	}

	appended := false
	if req.Append {
		if state.AppendFollowUp(req.QuestionIndex, followUp, turn.Category) {
			appended = true
			if err := h.storage.MySQL.SaveInterview(ctx, sessionID, state); err != nil {
				logger.Error().Err(err).Str("session_id", sessionID).Msg("追加追问后更新面试记录失败")
			}
		}
	}

	return &FollowUpResponse{
		SessionID: sessionID,
		FollowUp:  followUp,
		Appended:  appended,
		ParentIdx: req.QuestionIndex,
		Category:  turn.Category,
	}, nil
}

// HandleGet 按会话ID查询面试记录
func (h *WorkflowHandler) HandleGet(ctx context.Context, sessionID string) (*types.InterviewState, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("MySQL未配置，无法查询历史记录")
	}
	return h.storage.MySQL.GetInterview(ctx, sessionID)
}

// HandleList 分页列出面试记录
func (h *WorkflowHandler) HandleList(ctx context.Context, limit, offset int) ([]models.InterviewRecord, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("MySQL未配置，无法查询历史记录")
	}
	return h.storage.MySQL.ListInterviews(ctx, limit, offset)
}

// HandleDelete 删除一条面试记录
func (h *WorkflowHandler) HandleDelete(ctx context.Context, sessionID string) error {
	if h.storage == nil || h.storage.MySQL == nil {
		return fmt.Errorf("MySQL未配置，无法删除历史记录")
	}
	return h.storage.MySQL.DeleteInterview(ctx, sessionID)
}
