package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only when it still carries our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOrderLocker serializes commands per order id across instances with
// SET NX PX. The ttl bounds how long a crashed holder blocks the order.
type RedisOrderLocker struct {
	client        redis.UniversalClient
	keyPrefix     string
	ttl           time.Duration
	waitTimeout   time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewRedisOrderLocker creates a locker over an existing client
func NewRedisOrderLocker(client redis.UniversalClient, cfg config.LockConfig, logger *zap.Logger) *RedisOrderLocker {
	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &RedisOrderLocker{
		client:        client,
		keyPrefix:     "fulfillment:lock:order:",
		ttl:           cfg.TTL,
		waitTimeout:   cfg.WaitTimeout,
		retryInterval: retry,
		logger:        logger,
	}
}

// NewRedisClient opens a client and checks the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Lock polls until the key is set or the wait timeout passes
func (l *RedisOrderLocker) Lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	key := l.keyPrefix + orderID.String()
	token := uuid.NewString()

	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire lock for order %s: %w", orderID, err)
		}
		if ok {
			return l.unlockFunc(key, token, orderID), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lockUnavailable(orderID, ctx.Err())
		}
	}
}

func (l *RedisOrderLocker) unlockFunc(key, token string, orderID uuid.UUID) func() {
	return func() {
		// release even when the command's context was cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			l.logger.Warn("failed to release order lock",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
			return
		}
		if released == 0 {
			l.logger.Warn("order lock expired before release",
				zap.String("order_id", orderID.String()),
				zap.Duration("ttl", l.ttl),
			)
		}
	}
}
