package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/classsync/classsync-api/pkg/config"
	"github.com/classsync/classsync-api/pkg/middleware/requestid"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "loud"}})
	require.Error(t, err)

	l, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func newObservedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(requestid.Middleware(), GinMiddleware(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		FromContext(c.Request.Context(), nil).Info("inside handler")
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})
	return r, logs
}

func TestGinMiddlewareLevels(t *testing.T) {
	r, logs := newObservedRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestid.Header, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)

	inner := entries[1]
	assert.Equal(t, "inside handler", inner.Message)
	assert.Equal(t, "req-1", inner.ContextMap()["request_id"])

	access := entries[2]
	assert.Equal(t, zapcore.ErrorLevel, access.Level)
	fields := access.ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/boom", fields["route"])
	assert.Equal(t, []interface{}{"db down"}, fields["errors"])
}

func TestFromContextFallback(t *testing.T) {
	fallback := zap.NewExample()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))
}
