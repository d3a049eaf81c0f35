// Package router assembles the gin engine and mounts the API routes.
package router

import (
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registrar under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineConfig configures the middleware chain of NewEngine
type EngineConfig struct {
	ServiceName    string
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
	RequestTimeout time.Duration
	BodyLimit      int64
}

// NewEngine creates a gin engine with the standard middleware chain:
// recovery, request id, actor, tracing, request logging, metrics, security
// headers, body limit and request timeout. Gin's validator is configured
// with the fulfillment tags.
func NewEngine(cfg EngineConfig) *gin.Engine {
	middleware.SetupValidator()

	zapLogger := cfg.Logger
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = middleware.DefaultBodyLimit
	}

	engine := gin.New()
	engine.Use(logger.Recovery(zapLogger))
	engine.Use(middleware.RequestID(), middleware.Actor())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName:    cfg.ServiceName,
		Enabled:        cfg.TracerProvider != nil,
		TracerProvider: cfg.TracerProvider,
	}))
	engine.Use(middleware.SpanErrorMarker(), middleware.TracingAttributeInjector())
	engine.Use(logger.GinMiddleware(zapLogger))
	engine.Use(middleware.HTTPMetrics(cfg.Meter))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(bodyLimit))
	engine.Use(middleware.Timeout(cfg.RequestTimeout))
	return engine
}
