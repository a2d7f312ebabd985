package auth

import (
	"testing"
	"time"

	"feedme-console/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "console",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenSourceEmptyToken(t *testing.T) {
	s := NewStaticTokenSource("", logger.Noop{})
	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenSourceOpaqueToken(t *testing.T) {
	s := NewStaticTokenSource("not-a-jwt-at-all", logger.Noop{})

	token, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt-at-all", token)
	assert.True(t, s.Expiry().IsZero(), "opaque tokens carry no readable expiry")
}

func TestTokenSourceReadsJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := NewStaticTokenSource(signedToken(t, exp), logger.Noop{})

	assert.True(t, s.Expiry().Equal(exp))
}

func TestTokenSourceStillYieldsExpiredToken(t *testing.T) {
	// An expired token is the backend's call to reject; we only warn.
	raw := signedToken(t, time.Now().Add(-time.Hour))
	s := NewStaticTokenSource(raw, logger.Noop{})

	token, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, raw, token)
}
