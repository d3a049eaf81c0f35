package cache

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLocker is satisfied by both locker backends
type OrderLocker interface {
	Lock(ctx context.Context, orderID uuid.UUID) (func(), error)
}

// NewOrderLocker builds the locker selected by lock.backend. The returned
// close func releases the redis client, if one was opened.
func NewOrderLocker(lockCfg config.LockConfig, redisCfg config.RedisConfig, logger *zap.Logger) (OrderLocker, func() error, error) {
	switch lockCfg.Backend {
	case "redis":
		client, err := NewRedisClient(redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("redis lock backend unavailable: %w", err)
		}
		logger.Info("using Redis order locker",
			zap.String("addr", redisCfg.Addr()),
			zap.Duration("ttl", lockCfg.TTL),
		)
		return NewRedisOrderLocker(client, lockCfg, logger), client.Close, nil
	case "", "local":
		logger.Info("using in-process order locker", zap.Duration("wait_timeout", lockCfg.WaitTimeout))
		return NewLocalOrderLocker(lockCfg.WaitTimeout), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", lockCfg.Backend)
	}
}
