package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/infrastructure/scheduler"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// ScanController is the part of the scan scheduler the handler drives
type ScanController interface {
	Trigger() error
	LastRun() *scheduler.Run
}

// ExpiryScanHandler exposes manual triggering and status of the expiry scan
type ExpiryScanHandler struct {
	BaseHandler
	scans ScanController
}

// NewExpiryScanHandler creates a new ExpiryScanHandler
func NewExpiryScanHandler(scans ScanController) *ExpiryScanHandler {
	return &ExpiryScanHandler{scans: scans}
}

// RegisterRoutes mounts the handler under rg
func (h *ExpiryScanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/expiry-scan")
	g.POST("", h.Trigger)
	g.GET("/last", h.LastRun)
}

// Trigger queues an immediate scan
func (h *ExpiryScanHandler) Trigger(c *gin.Context) {
	err := h.scans.Trigger()
	switch {
	case errors.Is(err, scheduler.ErrRunPending):
		h.Error(c, dto.ErrCodeScanAlreadyRequested, "a scan is already queued")
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.Error(c, dto.ErrCodeUnavailable, "expiry scanner is not running")
	case err != nil:
		h.HandleError(c, err)
	default:
		h.Accepted(c, gin.H{"status": "queued"})
	}
}

// LastRun returns the most recent scan run
func (h *ExpiryScanHandler) LastRun(c *gin.Context) {
	run := h.scans.LastRun()
	if run == nil {
		h.Error(c, dto.ErrCodeNotFound, "no scan has run yet")
		return
	}
	h.Success(c, run)
}
