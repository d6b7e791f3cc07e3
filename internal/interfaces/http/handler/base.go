package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

var supportedLanguages = language.NewMatcher([]language.Tag{shared.LangEnglish, shared.LangArabic})

// getRequestID returns the request ID set by the logging middleware, falling back
// to the inbound header
func getRequestID(c *gin.Context) string {
	if id := logger.GetRequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// requestLanguage picks English or Arabic from Accept-Language
func requestLanguage(c *gin.Context) language.Tag {
	accept := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if accept == "" {
		return shared.LangEnglish
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return shared.LangEnglish
	}
	_, idx, _ := supportedLanguages.Match(tags...)
	if idx == 1 {
		return shared.LangArabic
	}
	return shared.LangEnglish
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	resp := dto.NewErrorResponse(code, message)
	resp.Error.RequestID = getRequestID(c)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), resp)
}

// HandleError maps err to an API error. Domain errors carry a bilingual message;
// anything else is logged and reported as an internal error without detail.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	code := dto.CodeForError(err)
	if code == dto.ErrCodeInternal {
		logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		h.Error(c, code, "internal error")
		return
	}

	resp := dto.NewErrorResponse(code, shared.LocalizedMessage(err, requestLanguage(c)))
	resp.Error.MessageAR = shared.LocalizedMessage(err, shared.LangArabic)
	resp.Error.RequestID = getRequestID(c)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), resp)
}
