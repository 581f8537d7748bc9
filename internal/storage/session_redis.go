package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/types"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// Redis wraps the Redis client.
// 实时面试会话的工作存储：会话状态带TTL，过期即视为面试放弃。
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// sessionKey 构造实时会话的Redis键
func sessionKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyLiveSession, sessionID)
}

// PutLiveSession 写入实时面试会话状态并刷新TTL。
// 每次答题后都整体覆盖写入，保证会话活跃期间不过期。
func (r *Redis) PutLiveSession(ctx context.Context, sessionID string, state *types.InterviewState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化实时会话状态失败: %w", err)
	}
	return r.Client.Set(ctx, sessionKey(sessionID), payload, constants.LiveSessionTTL).Err()
}

// GetLiveSession 读取实时面试会话状态。
// 会话不存在或已过期时返回ErrNotFound。
func (r *Redis) GetLiveSession(ctx context.Context, sessionID string) (*types.InterviewState, error) {
	payload, err := r.Client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取实时会话失败, sessionID=%s: %w", sessionID, err)
	}

	var state types.InterviewState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("反序列化实时会话状态失败, sessionID=%s: %w", sessionID, err)
	}
	state.EnsureProvenanceMaps()
	return &state, nil
}

// DeleteLiveSession 删除实时面试会话（面试结束或放弃）
func (r *Redis) DeleteLiveSession(ctx context.Context, sessionID string) error {
	return r.Client.Del(ctx, sessionKey(sessionID)).Err()
}
