package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pharmacy/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService() *TokenService {
	return NewTokenService(config.OpsAuthConfig{
		Secret:          testSecret,
		Issuer:          "pharmacy-ledger",
		TokenExpiration: time.Hour,
	})
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.Issue(7, ScopeRead, ScopeWrite)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.NotEmpty(t, token.Value)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	claims, err := svc.Validate(token.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.OperatorID)
	assert.Equal(t, "operator:7", claims.Subject)
	assert.Equal(t, []string{ScopeRead, ScopeWrite}, claims.Scopes)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_IssueRejects(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Issue(0, ScopeRead)
	assert.ErrorIs(t, err, ErrMissingOperatorID)

	_, err = svc.Issue(1, "admin")
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestTokenService_ValidateExpired(t *testing.T) {
	svc := newTestTokenService()
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue(1, ScopeRead)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.Validate(token.Value)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_ValidateNotYetValid(t *testing.T) {
	svc := newTestTokenService()
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue(1, ScopeRead)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(-time.Hour) }
	_, err = svc.Validate(token.Value)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestTokenService_ValidateRejectsForeignTokens(t *testing.T) {
	svc := newTestTokenService()

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewTokenService(config.OpsAuthConfig{
			Secret:          "another-secret-key-at-least-32-chars",
			Issuer:          "pharmacy-ledger",
			TokenExpiration: time.Hour,
		})
		token, err := other.Issue(1, ScopeRead)
		require.NoError(t, err)
		_, err = svc.Validate(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("different issuer", func(t *testing.T) {
		other := NewTokenService(config.OpsAuthConfig{
			Secret:          testSecret,
			Issuer:          "someone-else",
			TokenExpiration: time.Hour,
		})
		token, err := other.Issue(1, ScopeRead)
		require.NoError(t, err)
		_, err = svc.Validate(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "pharmacy-ledger",
				Audience:  jwt.ClaimStrings{"pharmacy-ledger"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			OperatorID: 1,
			Scopes:     []string{ScopeWrite},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing operator", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "pharmacy-ledger",
				Audience:  jwt.ClaimStrings{"pharmacy-ledger"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Scopes: []string{ScopeRead},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrMissingOperatorID)
	})
}

func TestClaims_Allows(t *testing.T) {
	read := &Claims{Scopes: []string{ScopeRead}}
	assert.True(t, read.Allows(ScopeRead))
	assert.False(t, read.Allows(ScopeWrite))

	write := &Claims{Scopes: []string{ScopeWrite}}
	assert.True(t, write.Allows(ScopeRead))
	assert.True(t, write.Allows(ScopeWrite))

	assert.False(t, (&Claims{}).Allows(ScopeRead))
}
