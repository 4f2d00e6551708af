package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kweaver-ai/ai-store/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.InstallLocker = (*RedisLocker)(nil)

const (
	keyPrefix      = "dip-hub:install:"
	defaultTTL     = 10 * time.Minute
	releaseTimeout = 2 * time.Second
)

// 只有持有者才能删除锁，避免 TTL 过期后误删他人的锁。
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker 用 SET NX PX 实现按包 Key 的互斥安装。
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(url string, ttl time.Duration) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

func (l *RedisLocker) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	lockKey := keyPrefix + key
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, owner, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire install lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// 安装请求的 ctx 可能已取消，释放时使用独立的超时
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{lockKey}, owner).Err(); err != nil {
			slog.Warn("failed to release install lock", "key", key, "error", err)
		}
	}
	return release, true, nil
}
