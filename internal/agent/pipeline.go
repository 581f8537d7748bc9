package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"
)

// Pipeline 面试流水线编排器。
// 按固定顺序依次执行各阶段，所有阶段共享同一个状态引用；
// 阶段之间严格串行，任一阶段失败则整次运行失败。
type Pipeline struct {
	stages    []Stage
	sessionID string
}

// NewPipeline 用给定的阶段序列创建编排器。
// 标准流水线的顺序是：JD分析 → 简历分析 → 问题生成 → 评估。
func NewPipeline(sessionID string, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:    stages,
		sessionID: sessionID,
	}
}

// RunFull 执行完整流水线，原地更新并返回同一个状态。
func (p *Pipeline) RunFull(ctx context.Context, state *types.InterviewState) (*types.InterviewState, error) {
	ctx, span := agentTracer.Start(ctx, "Pipeline.RunFull")
	defer span.End()

	span.SetAttributes(
		attribute.String("session.id", p.sessionID),
		attribute.String("job.title", state.JobTitle),
		attribute.Int("total_questions", state.TotalQuestions),
		attribute.Int("stages.count", len(p.stages)),
	)

	for _, stage := range p.stages {
		// 评估阶段开始前状态短暂进入EVALUATING
		if stage.Role() == types.AgentJudge {
			state.Status = types.StatusEvaluating
		}

		logger.Info().
			Str("session_id", p.sessionID).
			Str("stage", stage.Role()).
			Msg("执行流水线阶段")

		if err := stage.Run(ctx, state); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeLLM)
			return nil, fmt.Errorf("阶段 %s 执行失败: %w", stage.Role(), err)
		}
	}

	span.SetAttributes(attribute.String("final_status", string(state.Status)))
	span.SetStatus(codes.Ok, "")
	return state, nil
}

// RunJudgeOnly 部分重跑：清空已有评估，状态回到INTERVIEW，只执行评估阶段。
// 调用方负责在调用前替换状态中的问答列表（重新评估场景）。
func (p *Pipeline) RunJudgeOnly(ctx context.Context, judge Stage, state *types.InterviewState) (*types.InterviewState, error) {
	ctx, span := agentTracer.Start(ctx, "Pipeline.RunJudgeOnly")
	defer span.End()

	span.SetAttributes(
		attribute.String("session.id", p.sessionID),
		attribute.String("job.title", state.JobTitle),
		attribute.Int("qa_turns", len(state.QAHistory)),
	)

	state.Evaluation = nil
	state.Status = types.StatusInterview
	state.EnsureProvenanceMaps()

	state.Status = types.StatusEvaluating
	if err := judge.Run(ctx, state); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("阶段 %s 执行失败: %w", judge.Role(), err)
	}

	span.SetAttributes(attribute.String("final_status", string(state.Status)))
	span.SetStatus(codes.Ok, "")
	return state, nil
}
