package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/infrastructure/auth"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Context keys and header names for operator auth
const (
	AuthHeaderKey     = "Authorization"
	BearerPrefix      = "Bearer "
	OperatorClaimsKey = "operator_claims"
)

// Auth error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
)

// TokenValidator validates bearer tokens. Satisfied by auth.TokenService.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// OperatorAuth requires a valid operator token. Safe methods need ops:read,
// everything else ops:write.
func OperatorAuth(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) || strings.TrimPrefix(header, BearerPrefix) == "" {
			abortAuth(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}

		claims, err := validator.Validate(strings.TrimPrefix(header, BearerPrefix))
		if err != nil {
			log.Warn("Operator authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			if errors.Is(err, auth.ErrExpiredToken) {
				abortAuth(c, http.StatusUnauthorized, ErrCodeTokenExpired, "token has expired")
				return
			}
			abortAuth(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid token")
			return
		}

		scope := auth.ScopeWrite
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			scope = auth.ScopeRead
		}
		if !claims.Allows(scope) {
			abortAuth(c, http.StatusForbidden, ErrCodeForbidden, "token lacks scope "+scope)
			return
		}

		c.Set(OperatorClaimsKey, claims)
		ctx, _ := logger.WithActorID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.OperatorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetOperatorClaims returns the claims set by OperatorAuth, or nil
func GetOperatorClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(OperatorClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message))
}
