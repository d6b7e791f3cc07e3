package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/alert"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAlertManager struct {
	mock.Mock
}

func (m *mockAlertManager) ListPending(ctx context.Context, filter shared.Filter) ([]alert.Alert, int64, error) {
	args := m.Called(ctx, filter)
	alerts, _ := args.Get(0).([]alert.Alert)
	return alerts, args.Get(1).(int64), args.Error(2)
}

func (m *mockAlertManager) MarkRead(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAlertManager) Dismiss(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAlertManager) Resolve(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func alertRouter(alerts AlertManager) *gin.Engine {
	engine := gin.New()
	NewAlertHandler(alerts).RegisterRoutes(engine.Group("/ops"))
	return engine
}

func TestAlertHandler_ListPending(t *testing.T) {
	days := 12
	expiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := alert.Alert{
		BatchID:       9,
		MedicineID:    3,
		Type:          "NEAR_EXPIRY",
		Severity:      shared.SeverityWarning,
		Title:         "Near expiry",
		MessageEN:     "Batch B-9 expires in 12 days",
		MessageAR:     "التشغيلة B-9 تنتهي صلاحيتها خلال 12 يومًا",
		Status:        alert.StatusPending,
		ExpiryDate:    &expiry,
		DaysRemaining: &days,
	}
	a.ID = 5

	alerts := new(mockAlertManager)
	alerts.On("ListPending", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 2 && f.PageSize == 10
	})).Return([]alert.Alert{a}, int64(11), nil)

	w := httptest.NewRecorder()
	alertRouter(alerts).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/alerts?page=2&page_size=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    AlertListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(11), body.Data.Total)
	assert.Equal(t, 2, body.Data.Page)
	require.Len(t, body.Data.Items, 1)
	item := body.Data.Items[0]
	assert.Equal(t, int64(5), item.ID)
	assert.Equal(t, "PENDING", item.Status)
	assert.Equal(t, a.MessageAR, item.MessageAR)
	require.NotNil(t, item.DaysRemaining)
	assert.Equal(t, 12, *item.DaysRemaining)
	alerts.AssertExpectations(t)
}

func TestAlertHandler_ListPending_DefaultsAndValidation(t *testing.T) {
	alerts := new(mockAlertManager)
	want := shared.DefaultFilter()
	want.OrderDir = "desc"
	alerts.On("ListPending", mock.Anything, want).Return([]alert.Alert{}, int64(0), nil)

	w := httptest.NewRecorder()
	alertRouter(alerts).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/alerts", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	alertRouter(alerts).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/alerts?page_size=1000", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, decode(t, w).Error.Code)

	alerts.AssertNumberOfCalls(t, "ListPending", 1)
}

func TestAlertHandler_Transitions(t *testing.T) {
	tests := []struct {
		path   string
		method string
		err    error
		status int
		code   string
	}{
		{path: "/ops/alerts/5/read", method: "MarkRead", status: http.StatusOK},
		{path: "/ops/alerts/5/dismiss", method: "Dismiss", status: http.StatusOK},
		{path: "/ops/alerts/5/resolve", method: "Resolve", status: http.StatusOK},
		{path: "/ops/alerts/5/read", method: "MarkRead", err: shared.ErrNotFound, status: http.StatusNotFound, code: dto.ErrCodeNotFound},
		{
			path: "/ops/alerts/5/read", method: "MarkRead",
			err:    shared.NewKindError(shared.KindInvalidTransition, "ALERT_CLOSED", "alert is closed"),
			status: http.StatusUnprocessableEntity, code: dto.ErrCodeInvalidTransition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.code, func(t *testing.T) {
			alerts := new(mockAlertManager)
			alerts.On(tt.method, mock.Anything, int64(5)).Return(tt.err)

			w := httptest.NewRecorder()
			alertRouter(alerts).ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode(t, w).Error.Code)
			}
			alerts.AssertExpectations(t)
		})
	}
}

func TestAlertHandler_InvalidID(t *testing.T) {
	alerts := new(mockAlertManager)
	for _, path := range []string{"/ops/alerts/abc/read", "/ops/alerts/0/dismiss"} {
		w := httptest.NewRecorder()
		alertRouter(alerts).ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	alerts.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}
