package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"interview-agent-go/internal/agent"
	"interview-agent-go/internal/api/handler"
	"interview-agent-go/internal/api/router"
	"interview-agent-go/internal/config"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/retrieval"
	"interview-agent-go/internal/storage"
	"interview-agent-go/internal/tracing"
)

var (
	version     = "1.0.0"              //nolint:gochecknoglobals
	serviceName = "interview-agent-go" //nolint:gochecknoglobals
)

// @title Interview Agent API
// @version 1.0
// @description Interview preparation and evaluation pipeline.
// @BasePath /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	initLogger(cfg)
	logger.Info().Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}()

	// 存储
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	logger.Info().Msg("存储服务初始化成功")

	// 聊天模型：主模型 + 轻量模型
	llm, err := agent.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化聊天模型失败")
	}
	logger.Info().Str("model", cfg.Aliyun.Model).Msg("聊天模型初始化成功")

	var miniLLM model.ToolCallingChatModel
	if cfg.Aliyun.MiniModel != "" {
		miniLLM, err = agent.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.MiniModel, cfg.Aliyun.APIURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化轻量聊天模型失败")
		}
		logger.Info().Str("model", cfg.Aliyun.MiniModel).Msg("轻量聊天模型初始化成功")
	}

	// 检索增强层：向量库 + Embedder + 网络搜索
	var augmenter agent.Augmenter
	var availableRoles []string

	if cfg.RAG.Enabled && cfg.Qdrant.Endpoint != "" {
		embedder, err := retrieval.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化Embedder失败")
		}

		index, err := retrieval.NewQdrant(&cfg.Qdrant)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化Qdrant失败")
		}
		logger.Info().Str("collection", cfg.Qdrant.Collection).Msg("Qdrant初始化成功")

		// 知识库加载：启动时增量写入，确定性ID保证重复加载幂等
		if cfg.KnowledgeDir != "" {
			loader := retrieval.NewKnowledgeLoader(cfg.KnowledgeDir, index, embedder)
			availableRoles = loader.AvailableRoles()

			count, err := loader.Load(ctx)
			if err != nil {
				logger.Warn().Err(err).Str("dir", cfg.KnowledgeDir).Msg("知识库加载失败，继续以现有索引提供检索")
			} else {
				logger.Info().Int("chunks", count).Strs("roles", availableRoles).Msg("知识库加载完成")
			}
		}

		var searcher retrieval.WebSearcher
		if cfg.RAG.EnableWebSearch && cfg.Tavily.APIKey != "" {
			searcher, err = retrieval.NewTavilyClient(&cfg.Tavily)
			if err != nil {
				logger.Warn().Err(err).Msg("初始化Tavily失败，网络搜索降级关闭")
				searcher = nil
			} else {
				logger.Info().Msg("Tavily网络搜索初始化成功")
			}
		}

		qualityLLM := miniLLM
		if qualityLLM == nil {
			qualityLLM = llm
		}
		augmenter = retrieval.NewAugmenter(index, embedder, searcher, qualityLLM, &cfg.RAG)
		logger.Info().Msg("检索增强层初始化成功")
	} else {
		logger.Info().Msg("检索增强未启用")
	}

	workflowHandler := handler.NewWorkflowHandler(cfg, storageManager, llm, miniLLM, augmenter, availableRoles)
	liveHandler := handler.NewLiveHandler(cfg, storageManager, llm, miniLLM, augmenter, availableRoles)

	// HTTP服务器，带OpenTelemetry服务端追踪
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg, workflowHandler, liveHandler)
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP路由注册成功, 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("服务器关闭失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统并接管Hertz的hlog
func initLogger(cfg *config.Config) {
	logger.Init(cfg.Logger)

	logger.Logger = logger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	hertzCompatibleLogger := hertzadapter.From(logger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
}
