package auth

import (
	"errors"
	"sync"
	"time"

	"feedme-console/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("auth: no API token configured")

// TokenSource yields the bearer token attached to API calls and to the
// realtime endpoint query string.
type TokenSource interface {
	Token() (string, error)
}

// StaticTokenSource holds a token handed in through configuration. If the
// token is a JWT, its expiry claim is inspected (without verifying the
// signature, we are not the issuer) so a stale token is reported before the
// backend rejects it.
type StaticTokenSource struct {
	token  string
	logger logger.ILogger

	mu         sync.Mutex
	expiry     time.Time
	parsedOnce bool
	warnedOnce bool
}

func NewStaticTokenSource(token string, log logger.ILogger) *StaticTokenSource {
	return &StaticTokenSource{token: token, logger: log}
}

func (s *StaticTokenSource) Token() (string, error) {
	if s.token == "" {
		return "", ErrNoToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.parsedOnce {
		s.parsedOnce = true
		s.expiry = parseExpiry(s.token)
	}

	if !s.expiry.IsZero() && time.Now().After(s.expiry) && !s.warnedOnce {
		s.warnedOnce = true
		s.logger.Warn("Auth", "API token is expired, backend will likely reject requests", map[string]interface{}{
			"expired_at": s.expiry,
		})
	}

	return s.token, nil
}

// Expiry returns the token's exp claim, or the zero time when the token is
// not a JWT or carries no expiry.
func (s *StaticTokenSource) Expiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.parsedOnce {
		s.parsedOnce = true
		s.expiry = parseExpiry(s.token)
	}
	return s.expiry
}

func parseExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	// Opaque (non-JWT) tokens are fine, they just have no readable expiry.
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
