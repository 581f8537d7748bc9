package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/tracing"
)

// Config 应用程序配置
type Config struct {
	// 阿里云DashScope（OpenAI兼容接口）配置：对话模型 + Embedding
	Aliyun AliyunConfig `yaml:"aliyun"`

	// Qdrant向量库配置（知识库检索）
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Tavily网络检索配置（RAG质量不足时的兜底）
	Tavily TavilyConfig `yaml:"tavily"`

	// RAG后处理（质量评估/重排/网络兜底）配置
	RAG RAGConfig `yaml:"rag"`

	// MySQL配置（面试记录持久化）
	MySQL MySQLConfig `yaml:"mysql"`

	// Redis配置（实时面试会话存储）
	Redis RedisConfig `yaml:"redis"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 日志配置
	Logger logger.Config `yaml:"logger"`

	// OpenTelemetry追踪配置
	Tracing tracing.Config `yaml:"tracing"`

	// 知识库目录（子目录名即职位方向标签）
	KnowledgeDir string `yaml:"knowledge_dir"`
}

// AliyunConfig 阿里云LLM与Embedding配置
type AliyunConfig struct {
	APIKey    string          `yaml:"api_key"`
	APIURL    string          `yaml:"api_url"`
	Model     string          `yaml:"model"`      // 标准模型，例如 qwen-plus
	MiniModel string          `yaml:"mini_model"` // 轻量模型，例如 qwen-turbo
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig Embedding接口配置
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
}

// QdrantConfig Qdrant向量数据库配置
type QdrantConfig struct {
	Endpoint           string `yaml:"endpoint"`             // Qdrant HTTP服务地址
	Collection         string `yaml:"collection"`           // 集合名称
	Dimension          int    `yaml:"dimension"`            // 向量维度
	APIKey             string `yaml:"api_key,omitempty"`    // (可选) Qdrant API Key
	DefaultSearchLimit int    `yaml:"default_search_limit"` // 默认搜索结果数量
}

// TavilyConfig Tavily搜索API配置
type TavilyConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`     // 默认 https://api.tavily.com
	SearchDepth string `yaml:"search_depth"` // basic / advanced
}

// RAGConfig RAG后处理配置
type RAGConfig struct {
	Enabled                   bool    `yaml:"enabled"`                      // 是否启用RAG
	TopK                      int     `yaml:"top_k"`                        // 每阶段注入的文档数
	RelevanceThreshold        float64 `yaml:"relevance_threshold"`          // 重排相关性下限
	WebSearchQualityThreshold float64 `yaml:"web_search_quality_threshold"` // 质量分低于该值强制网络检索
	MaxWebSearchResults       int     `yaml:"max_web_search_results"`       // 网络检索最大结果数
	EnableWebSearch           bool    `yaml:"enable_web_search"`            // 是否允许网络兜底检索
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"`
	MaxOpenConns int `yaml:"max_open_conns"`
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"`
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`
	// 日志级别(1-4)
	LogLevel int `yaml:"log_level"`
}

// RedisConfig Redis配置结构
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"`
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"`
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080"
	APIKey  string `yaml:"api_key"` // 非空时开启API Key鉴权
}

// LoadConfig 从文件加载配置。
// configPath为空时在常见位置查找；找不到时返回默认配置（便于测试环境）。
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".interview-agent", "config.yaml"),
		}

		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths, filepath.Join(execDir, "config.yaml"))
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		if configPath == "" {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides 从环境变量覆盖敏感配置（如果存在）
func applyEnvOverrides(config *Config) {
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}
	if envURL := os.Getenv("ALIYUN_API_URL"); envURL != "" {
		config.Aliyun.APIURL = envURL
	}
	if envModel := os.Getenv("ALIYUN_MODEL"); envModel != "" {
		config.Aliyun.Model = envModel
	}
	if envKey := os.Getenv("TAVILY_API_KEY"); envKey != "" {
		config.Tavily.APIKey = envKey
	}
	if envKey := os.Getenv("QDRANT_API_KEY"); envKey != "" {
		config.Qdrant.APIKey = envKey
	}
	if envPwd := os.Getenv("MYSQL_PASSWORD"); envPwd != "" {
		config.MySQL.Password = envPwd
	}
	if envPwd := os.Getenv("REDIS_PASSWORD"); envPwd != "" {
		config.Redis.Password = envPwd
	}
	if envKey := os.Getenv("SERVER_API_KEY"); envKey != "" {
		config.Server.APIKey = envKey
	}
}

// DefaultConfig 返回可直接运行（本地依赖默认端口）的默认配置
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Aliyun.Model = "qwen-plus"
	cfg.Aliyun.MiniModel = "qwen-turbo"
	cfg.Aliyun.Embedding.Model = "text-embedding-v3"
	cfg.Aliyun.Embedding.Dimensions = 1024

	cfg.Qdrant.Endpoint = "http://localhost:6333"
	cfg.Qdrant.Collection = "interview_knowledge"
	cfg.Qdrant.Dimension = 1024
	cfg.Qdrant.DefaultSearchLimit = constants.DefaultRAGTopK

	cfg.Tavily.BaseURL = "https://api.tavily.com"
	cfg.Tavily.SearchDepth = "basic"

	cfg.RAG.Enabled = true
	cfg.RAG.TopK = constants.DefaultRAGTopK
	cfg.RAG.RelevanceThreshold = constants.DefaultRelevanceThreshold
	cfg.RAG.WebSearchQualityThreshold = constants.DefaultWebSearchQualityThreshold
	cfg.RAG.MaxWebSearchResults = constants.DefaultMaxWebSearchResults
	cfg.RAG.EnableWebSearch = true

	cfg.MySQL.Host = "localhost"
	cfg.MySQL.Port = 3306
	cfg.MySQL.Username = "root"
	cfg.MySQL.Database = "interview_agent"
	cfg.MySQL.MaxIdleConns = 10
	cfg.MySQL.MaxOpenConns = 50

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10

	cfg.Server.Address = ":8080"

	cfg.Logger.Level = "info"
	cfg.Logger.Format = "json"

	cfg.Tracing.ServiceName = "interview-agent-go"
	cfg.Tracing.SamplingRate = 1.0

	cfg.KnowledgeDir = "data/knowledge_base"

	return cfg
}
