package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/repository"
	apperrors "github.com/spec-kit/storefront-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Only the public
// projection is carried downstream.
type Principal struct {
	Account domain.PublicAccount
}

// AuthMiddleware validates bearer tokens and loads the caller's account.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Require enforces authentication for protected routes. Expired and
// invalid tokens both reject with 401 but carry distinct messages; a
// banned account rejects with 403.
func (m *AuthMiddleware) Require(c *fiber.Ctx) error {
	account, err := m.resolve(c)
	if err != nil {
		return err
	}

	c.Locals(principalKey, &Principal{Account: account.Public()})
	return c.Next()
}

// Optional runs the same checks but resolves every failure to an
// anonymous request, for endpoints that personalize without requiring
// login.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	account, err := m.resolve(c)
	if err != nil {
		return c.Next()
	}

	c.Locals(principalKey, &Principal{Account: account.Public()})
	return c.Next()
}

// resolve performs the gate checks: bearer extraction, token verification,
// exactly one account lookup, ban enforcement.
func (m *AuthMiddleware) resolve(c *fiber.Ctx) (*domain.Account, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	payload, err := m.tokens.Verify(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperrors.NewUnauthorized("token expired")
		}
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.Context(), payload.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("account not found")
		}
		return nil, apperrors.MapError(err)
	}

	if account.IsBanned {
		return nil, apperrors.NewForbidden("account is banned")
	}

	return account, nil
}

// PrincipalFromContext retrieves the authenticated caller, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
