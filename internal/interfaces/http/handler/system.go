package handler

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger checks a backing store
type Pinger interface {
	Ping() error
}

// Reconciler verifies every financial account folds to its stored balance
type Reconciler interface {
	ReconcileAll(ctx context.Context) error
}

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name       string
	version    string
	db         Pinger
	reconciler Reconciler
	startTime  time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger, reconciler Reconciler) *SystemHandler {
	return &SystemHandler{
		name:       name,
		version:    version,
		db:         db,
		reconciler: reconciler,
		startTime:  time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// ReadinessResponse reports each readiness check
type ReadinessResponse struct {
	Database  string `json:"database"`
	Ledger    string `json:"ledger"`
	CheckedAt string `json:"checked_at"`
}

// GetSystemInfo returns name, version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Health is the liveness probe
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready is the readiness probe. The service is ready when the database answers and
// every account reconciles.
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		logger.GetGinLogger(c).Warn("Readiness check failed: database", zap.Error(err))
		h.Error(c, dto.ErrCodeUnavailable, "database unavailable")
		return
	}
	if err := h.reconciler.ReconcileAll(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReadinessResponse{
		Database:  "ok",
		Ledger:    "reconciled",
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterRoutes mounts the probes at the root of rg
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
	rg.GET("/system/info", h.GetSystemInfo)
}
