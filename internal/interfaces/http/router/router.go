package router

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig configures the gin engine
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
}

// NewEngine creates a gin engine with recovery, request logging and tracing
func NewEngine(cfg EngineConfig, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		logger.GinMiddleware(log),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
	)
	return engine
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	opsPrefix  string
	opsChain   []gin.HandlerFunc
	root       []RouteRegistrar
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithOpsPrefix sets the prefix of the operations group (default "/ops")
func WithOpsPrefix(prefix string) RouterOption {
	return func(r *Router) {
		r.opsPrefix = prefix
	}
}

// WithOpsMiddleware adds middleware to the operations group only, leaving
// root probes open
func WithOpsMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.opsChain = append(r.opsChain, handlers...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:    engine,
		opsPrefix: "/ops",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterRoot adds a registrar mounted at the engine root, for probes
func (r *Router) RegisterRoot(registrar RouteRegistrar) *Router {
	r.root = append(r.root, registrar)
	return r
}

// Register adds a registrar mounted under the ops prefix
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	for _, registrar := range r.root {
		registrar.RegisterRoutes(&r.engine.RouterGroup)
	}
	ops := r.engine.Group(r.opsPrefix, r.opsChain...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(ops)
	}
}
