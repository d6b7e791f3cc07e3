package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type registrarFunc func(rg *gin.RouterGroup)

func (f registrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

func pong(path string) registrarFunc {
	return func(rg *gin.RouterGroup) {
		rg.GET(path, func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	}
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).
		RegisterRoot(pong("/health")).
		Register(pong("/ping")).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/ops/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/ping").Code)
}

func TestRouterWithOpsPrefix(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithOpsPrefix("/admin")).Register(pong("/ping")).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/admin/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/ops/ping").Code)
}

func TestRouterWithOpsMiddleware(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	NewRouter(engine, WithOpsMiddleware(deny)).
		RegisterRoot(pong("/health")).
		Register(pong("/ping")).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/ops/ping").Code)
}

func TestNewEngine_RequestIDAndRecovery(t *testing.T) {
	engine := NewEngine(EngineConfig{ServiceName: "test"}, zap.NewNop())
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })
	engine.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(engine, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))

	assert.Equal(t, http.StatusInternalServerError, serve(engine, http.MethodGet, "/boom").Code)
}
