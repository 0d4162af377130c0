package lock

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	platformlock "github.com/riskibarqy/vocalia/internal/platform/lock"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
)

// releaseScript deletes the key only while it still carries our token, so a
// holder whose lease expired cannot release the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLockerConfig struct {
	KeyPrefix     string
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

// RedisLocker is a lease-based platformlock.Locker shared by every API instance.
type RedisLocker struct {
	client        redis.UniversalClient
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	waitTimeout   time.Duration
	logger        *logging.Logger
}

func NewRedisLocker(client redis.UniversalClient, cfg RedisLockerConfig, logger *logging.Logger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 25 * time.Millisecond
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 5 * time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "vocalia:lock:"
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &RedisLocker{
		client:        client,
		prefix:        cfg.KeyPrefix,
		ttl:           cfg.TTL,
		retryInterval: cfg.RetryInterval,
		waitTimeout:   cfg.WaitTimeout,
		logger:        logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (platformlock.Unlock, error) {
	if key == "" {
		return nil, crerr.Wrap(platformlock.ErrNotAcquired, "key is required")
	}

	redisKey := l.prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, crerr.Wrapf(err, "redis set nx key=%s", redisKey)
		}
		if ok {
			return l.unlocker(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, crerr.Wrapf(platformlock.ErrNotAcquired, "key=%s waited %s", key, l.waitTimeout)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(redisKey, token string) platformlock.Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled by the time the section ends.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			deleted, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
			if err != nil {
				l.logger.Error("release redis lock failed", "key", redisKey, "error", err)
				return
			}
			if deleted == 0 {
				l.logger.Warn("redis lock lease expired before release", "key", redisKey, "ttl", l.ttl.String())
			}
		})
	}
}
