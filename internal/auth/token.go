package auth

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/storefront-service/internal/domain"
)

// Sentinel verification failures. Callers inspect these with errors.Is to
// distinguish a token past its window from a malformed or forged one.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

var lifetimePattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseLifetime converts a "<integer><unit>" lifetime string (unit one of
// s, m, h, d) into a duration. Unparsable input yields the given fallback;
// lenient by choice so a bad deployment value degrades to the default
// instead of failing startup.
func ParseLifetime(value string, fallback time.Duration) time.Duration {
	match := lifetimePattern.FindStringSubmatch(value)
	if match == nil {
		return fallback
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return fallback
	}
	switch match[2] {
	case "s":
		return time.Duration(n) * time.Second
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	case "d":
		return time.Duration(n) * 24 * time.Hour
	}
	return fallback
}

// TokenManager issues and verifies signed access and refresh tokens. The
// signing secret is injected at construction and never read from ambient
// state; rotating it invalidates everything issued before.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager builds a manager from lifetime strings, applying the
// 15 minute / 30 day defaults for unparsable values.
func NewTokenManager(secret, accessTTL, refreshTTL string) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  ParseLifetime(accessTTL, defaultAccessTTL),
		refreshTTL: ParseLifetime(refreshTTL, defaultRefreshTTL),
	}
}

// Claims describes the JWT payload shared by access and refresh tokens.
type Claims struct {
	AccountID string      `json:"accountId"`
	Email     string      `json:"email,omitempty"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Payload converts the claims back to the domain payload.
func (c *Claims) Payload() domain.TokenPayload {
	return domain.TokenPayload{AccountID: c.AccountID, Email: c.Email, Role: c.Role}
}

// IssueAccess signs a short-lived access token for the payload.
func (tm *TokenManager) IssueAccess(payload domain.TokenPayload) (string, error) {
	return tm.sign(payload, tm.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the payload.
func (tm *TokenManager) IssueRefresh(payload domain.TokenPayload) (string, error) {
	return tm.sign(payload, tm.refreshTTL)
}

func (tm *TokenManager) sign(payload domain.TokenPayload, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: payload.AccountID,
		Email:     payload.Email,
		Role:      payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.AccountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify validates signature and expiry and returns the embedded payload.
// Expiry maps to ErrTokenExpired; any other failure maps to
// ErrTokenInvalid. Library error detail never leaves this package.
func (tm *TokenManager) Verify(tokenStr string) (domain.TokenPayload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return tm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenPayload{}, ErrTokenExpired
		}
		return domain.TokenPayload{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.TokenPayload{}, ErrTokenInvalid
	}
	return claims.Payload(), nil
}

// RefreshExpiry derives the absolute expiry instant for a refresh record
// issued at now.
func (tm *TokenManager) RefreshExpiry(now time.Time) time.Time {
	return now.Add(tm.refreshTTL)
}
