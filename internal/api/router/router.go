package router

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"interview-agent-go/internal/api/handler"
	"interview-agent-go/internal/config"
	"interview-agent-go/internal/storage"
)

// RegisterRoutes 注册 API 路由。
// 配置了Server.APIKey时所有/api/v1路由要求Bearer鉴权，健康检查除外。
func RegisterRoutes(h *server.Hertz, cfg *config.Config, workflowHandler *handler.WorkflowHandler, liveHandler *handler.LiveHandler) {
	// 健康检查不走鉴权
	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")

	if cfg.Server.APIKey != "" {
		api.Use(keyauth.New(
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == cfg.Server.APIKey, nil
			}),
			keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
				ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "未授权"})
			}),
		))
	}

	// 一次性完整流水线
	api.POST("/interview/run", func(c context.Context, ctx *app.RequestContext) {
		var req handler.RunRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := workflowHandler.HandleRun(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 重新评估：替换问答记录后只重跑评估阶段
	api.POST("/interview/:session_id/rejudge", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		var req handler.RejudgeRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := workflowHandler.HandleRejudge(c, sessionID, &req)
		if err != nil {
			if err == storage.ErrRecordNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "面试记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 追问生成
	api.POST("/interview/:session_id/followup", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		var req handler.FollowUpRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := workflowHandler.HandleFollowUp(c, sessionID, &req)
		if err != nil {
			if err == storage.ErrRecordNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "面试记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 历史记录查询
	api.GET("/interview/:session_id", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		state, err := workflowHandler.HandleGet(c, sessionID)
		if err != nil {
			if err == storage.ErrRecordNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "面试记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"session_id": sessionID, "state": state})
	})

	api.GET("/interviews", func(c context.Context, ctx *app.RequestContext) {
		limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

		records, err := workflowHandler.HandleList(c, limit, offset)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"records": records, "count": len(records)})
	})

	api.DELETE("/interview/:session_id", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		if err := workflowHandler.HandleDelete(c, sessionID); err != nil {
			if err == storage.ErrRecordNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "面试记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"deleted": sessionID})
	})

	// 实时面试
	api.POST("/live/start", func(c context.Context, ctx *app.RequestContext) {
		var req handler.RunRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := liveHandler.HandleStart(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/live/:session_id/answer", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		var req handler.LiveAnswerRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := liveHandler.HandleSubmitAnswer(c, sessionID, &req)
		if err != nil {
			if err == storage.ErrNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "实时会话不存在或已过期"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/live/:session_id/end", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		var req handler.LiveEndRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := liveHandler.HandleEnd(c, sessionID, &req)
		if err != nil {
			if err == storage.ErrNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "实时会话不存在或已过期"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/live/:session_id", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		state, err := liveHandler.HandleGetSession(c, sessionID)
		if err != nil {
			if err == storage.ErrNotFound {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "实时会话不存在或已过期"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"session_id": sessionID, "state": state})
	})
}
