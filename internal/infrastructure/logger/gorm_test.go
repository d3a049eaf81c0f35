package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFunc() (string, int64) {
	return "UPDATE fulfillment_orders SET status = 'ON_HOLD'", 1
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info, WithSlowThreshold(time.Second))
	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Warn, changed.level)
	assert.Equal(t, time.Second, changed.slowThreshold)
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{"error", gormlogger.Error, nil, time.Now(), errors.New("deadlock"), "query failed", zapcore.ErrorLevel},
		{"not found ignored", gormlogger.Error, nil, time.Now(), gormlogger.ErrRecordNotFound, "", 0},
		{"not found logged", gormlogger.Error, []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, time.Now(), gormlogger.ErrRecordNotFound, "query failed", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, time.Now().Add(-time.Second), nil, "slow query", zapcore.WarnLevel},
		{"normal", gormlogger.Info, nil, time.Now(), nil, "query", zapcore.DebugLevel},
		{"below info", gormlogger.Warn, nil, time.Now(), nil, "", 0},
		{"silent", gormlogger.Silent, nil, time.Now(), errors.New("x"), "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gl.Trace(context.Background(), tt.begin, sqlFunc, tt.err)

			if tt.wantMsg == "" {
				assert.Empty(t, recorded.All())
				return
			}
			require.Len(t, recorded.All(), 1)
			assert.Equal(t, tt.wantMsg, recorded.All()[0].Message)
			assert.Equal(t, tt.wantLevel, recorded.All()[0].Level)
		})
	}
}

func TestGormLogger_TraceCarriesContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx := context.WithValue(context.Background(), OrderIDKey, "order-1")
	ctx = context.WithValue(ctx, ActorKey, "ops")
	gl.Trace(ctx, time.Now(), sqlFunc, nil)

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "order-1", fields["order_id"])
	assert.Equal(t, "ops", fields["actor"])
}

func TestGormLogger_TraceNoopUpdate(t *testing.T) {
	noop := func() (string, int64) {
		return "UPDATE \"fulfillment_orders\" SET \"version\"=3 WHERE id = $1 AND version = $2", 0
	}

	core, recorded := observer.New(zapcore.DebugLevel)
	NewGormLogger(zap.New(core), gormlogger.Warn).Trace(context.Background(), time.Now(), noop, nil)

	require.Len(t, recorded.All(), 1)
	entry := recorded.All()[0]
	assert.Equal(t, "update matched no rows", entry.Message)
	assert.Equal(t, "update", entry.ContextMap()["statement"])

	core, recorded = observer.New(zapcore.DebugLevel)
	NewGormLogger(zap.New(core), gormlogger.Warn, WithNoopUpdateReporting(false)).
		Trace(context.Background(), time.Now(), noop, nil)
	assert.Empty(t, recorded.All())
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Info(context.Background(), "hidden %d", 1)
	gl.Warn(context.Background(), "warned %d", 2)
	gl.Error(context.Background(), "failed %s", "x")

	require.Len(t, recorded.All(), 2)
	assert.Equal(t, "warned 2", recorded.All()[0].Message)
	assert.Equal(t, "failed x", recorded.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("FATAL"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}

var _ gormlogger.Interface = (*GormLogger)(nil)
