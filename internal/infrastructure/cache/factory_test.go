package cache

import (
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOrderLocker(t *testing.T) {
	t.Run("local backend", func(t *testing.T) {
		locker, closeFn, err := NewOrderLocker(config.LockConfig{Backend: "local", WaitTimeout: time.Second}, config.RedisConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &LocalOrderLocker{}, locker)
		assert.NoError(t, closeFn())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := NewOrderLocker(config.LockConfig{Backend: "etcd"}, config.RedisConfig{}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "etcd")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		_, _, err := NewOrderLocker(config.LockConfig{Backend: "redis"}, config.RedisConfig{Host: "127.0.0.1", Port: 1}, zap.NewNop())
		require.Error(t, err)
	})
}
