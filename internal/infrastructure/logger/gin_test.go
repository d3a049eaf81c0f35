package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestGinMiddleware_PropagatesRequestContext(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-1")
		c.Set(GinActorKey, "ops@example.com")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))

	var seenActor, seenRequestID string
	router.POST("/orders/:id/hold", func(c *gin.Context) {
		seenActor = GetActor(c.Request.Context())
		seenRequestID = GetRequestID(c.Request.Context())
		FromContext(c.Request.Context()).Info("handler ran")
		c.Status(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/abc/hold?dry=1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "ops@example.com", seenActor)
	assert.Equal(t, "req-1", seenRequestID)

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "handler ran", entries[0].Message)
	assert.Equal(t, "ops@example.com", fieldMap(entries[0])["actor"])

	httpLog := entries[1]
	assert.Equal(t, "HTTP Request", httpLog.Message)
	assert.Equal(t, zapcore.WarnLevel, httpLog.Level)
	fields := fieldMap(httpLog)
	assert.EqualValues(t, http.StatusConflict, fields["status"])
	assert.Equal(t, "dry=1", fields["query"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		core, recorded := observer.New(zapcore.DebugLevel)
		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Len(t, recorded.All(), 1)
		assert.Equal(t, tt.level, recorded.All()[0].Level, "status %d", tt.status)
	}
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, recorded.All(), 1)
	assert.Contains(t, recorded.All()[0].Message, "Panic recovered")
}

func TestGetGinLogger(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))

	l := zap.NewNop()
	c.Set(GinLoggerKey, l)
	assert.Equal(t, l, GetGinLogger(c))
}
