package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/")
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(logger.RequestIDHeader, "header-id")
	assert.Equal(t, "header-id", getRequestID(c))

	ctx, _ := logger.WithRequestID(c.Request.Context(), zap.NewNop(), "ctx-id")
	c.Request = c.Request.WithContext(ctx)
	assert.Equal(t, "ctx-id", getRequestID(c))
}

func TestRequestLanguage(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"", "en"},
		{"ar-EG,ar;q=0.9,en;q=0.8", "ar"},
		{"en-US,en;q=0.9", "en"},
		{"fr-FR", "en"},
		{"not a language;;", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/")
			c.Request.Header.Set("Accept-Language", tt.header)
			base, _ := requestLanguage(c).Base()
			assert.Equal(t, tt.expected, base.String())
		})
	}
}

func TestBaseHandler_HandleError_DomainError(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodPost, "/")
	c.Request.Header.Set(logger.RequestIDHeader, "req-1")

	err := fmt.Errorf("approve: %w", shared.NewKindError(shared.KindInsufficientStock, "SALE_SHORT", "medicine 7 needs 120, 80 sellable"))
	h.HandleError(c, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Insufficient stock")
	assert.Contains(t, resp.Error.MessageAR, "الكمية غير كافية")
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestBaseHandler_HandleError_ArabicFirst(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodPost, "/")
	c.Request.Header.Set("Accept-Language", "ar")

	h.HandleError(c, shared.ErrCancellationConflict)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decode(t, w)
	assert.Contains(t, resp.Error.Message, "لا يمكن الإلغاء")
}

func TestBaseHandler_HandleError_InternalHidesDetail(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/")

	h.HandleError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, "internal error", resp.Error.Message)
	assert.True(t, c.IsAborted())
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/")

	h.Success(c, gin.H{"n": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}
