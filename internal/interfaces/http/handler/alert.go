package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// AlertManager is the staff-facing part of the alert service
type AlertManager interface {
	ListPending(ctx context.Context, filter shared.Filter) ([]alert.Alert, int64, error)
	MarkRead(ctx context.Context, id int64) error
	Dismiss(ctx context.Context, id int64) error
	Resolve(ctx context.Context, id int64) error
}

// AlertHandler lists pending alerts and moves them through their status machine
type AlertHandler struct {
	BaseHandler
	alerts AlertManager
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts AlertManager) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// RegisterRoutes mounts the handler under rg
func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/alerts")
	g.GET("", h.ListPending)
	g.POST("/:id/read", h.transition(h.alerts.MarkRead))
	g.POST("/:id/dismiss", h.transition(h.alerts.Dismiss))
	g.POST("/:id/resolve", h.transition(h.alerts.Resolve))
}

type listAlertsQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// AlertResponse is the JSON form of an alert
type AlertResponse struct {
	ID            int64      `json:"id"`
	BatchID       int64      `json:"batch_id"`
	MedicineID    int64      `json:"medicine_id"`
	Type          string     `json:"type"`
	Severity      string     `json:"severity"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	MessageAR     string     `json:"message_ar"`
	Status        string     `json:"status"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AlertListResponse is a page of alerts
type AlertListResponse struct {
	Items    []AlertResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ListPending returns pending alerts, newest first
func (h *AlertHandler) ListPending(c *gin.Context) {
	var q listAlertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.Error(c, dto.ErrCodeBadRequest, err.Error())
		return
	}
	filter := shared.DefaultFilter()
	filter.OrderDir = "desc"
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}

	alerts, total, err := h.alerts.ListPending(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, toAlertResponse(&alerts[i]))
	}
	h.Success(c, AlertListResponse{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (h *AlertHandler) transition(apply func(context.Context, int64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			h.Error(c, dto.ErrCodeBadRequest, "invalid alert id")
			return
		}
		if err := apply(c.Request.Context(), id); err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"id": id})
	}
}

func toAlertResponse(a *alert.Alert) AlertResponse {
	return AlertResponse{
		ID:            a.ID,
		BatchID:       a.BatchID,
		MedicineID:    a.MedicineID,
		Type:          string(a.Type),
		Severity:      a.Severity.String(),
		Title:         a.Title,
		Message:       a.MessageEN,
		MessageAR:     a.MessageAR,
		Status:        string(a.Status),
		ExpiryDate:    a.ExpiryDate,
		DaysRemaining: a.DaysRemaining,
		CreatedAt:     a.CreatedAt,
	}
}
