package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/config"
	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/events"
	"github.com/spec-kit/storefront-service/internal/repository"
	apperrors "github.com/spec-kit/storefront-service/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TokenPair bundles the credentials returned by register and login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService coordinates registration, login, refresh, and logout flows.
type AuthService struct {
	accounts   repository.AccountRepository
	sessions   repository.SessionRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	SessionRepo repository.SessionRepository
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service. The signing secret comes in through
// config and lives inside the token manager from here on.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		sessions:   deps.SessionRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL),
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.Account, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, TokenPair{}, apperrors.NewValidationError("invalid email format", nil)
	}

	if strength := auth.ValidatePasswordStrength(password); !strength.IsValid {
		return nil, TokenPair{}, apperrors.NewValidationError(strings.Join(strength.Errors, "; "), nil)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, apperrors.NewValidationError("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, TokenPair{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, TokenPair{}, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, account)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.publish(ctx, events.EventAccountRegistered, account)
	return account, pair, nil
}

// Login authenticates an account and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, TokenPair{}, err
	}

	if !auth.ComparePassword(account.PasswordHash, password) {
		return nil, TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
	}

	if account.IsBanned {
		return nil, TokenPair{}, apperrors.NewForbidden("account is banned")
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		return nil, TokenPair{}, err
	}
	now := time.Now()
	account.LastLoginAt = &now

	pair, err := s.issuePair(ctx, account)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.publish(ctx, events.EventAccountLoggedIn, account)
	return account, pair, nil
}

// Refresh exchanges a still-valid refresh token for a new access token.
// The refresh token itself stays valid until natural expiry; no rotation
// is performed, so repeated exchanges of the same token all succeed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	_, err := s.tokenMgr.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", apperrors.NewUnauthorized("refresh token expired")
		}
		return "", apperrors.NewUnauthorized("invalid refresh token")
	}

	record, err := s.sessions.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewUnauthorized("unknown refresh token")
		}
		return "", err
	}
	if record.Expired(time.Now()) {
		return "", apperrors.NewUnauthorized("refresh token expired")
	}

	account, err := s.accounts.GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewUnauthorized("account not found")
		}
		return "", err
	}
	if account.IsBanned {
		return "", apperrors.NewUnauthorized("account is banned")
	}

	accessToken, err := s.tokenMgr.IssueAccess(tokenPayload(account))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventTokenRefreshed, account)
	return accessToken, nil
}

// Logout revokes the caller's refresh record. Revoking a token owned by a
// different account deletes nothing; the ack stays idempotent either way.
func (s *AuthService) Logout(ctx context.Context, accountID, refreshToken string) error {
	if err := s.sessions.Revoke(ctx, refreshToken, accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	s.publish(ctx, events.EventSessionRevoked, &domain.Account{ID: accountID})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issuePair(ctx context.Context, account *domain.Account) (TokenPair, error) {
	payload := tokenPayload(account)

	accessToken, err := s.tokenMgr.IssueAccess(payload)
	if err != nil {
		return TokenPair{}, apperrors.NewInternalError(err)
	}
	refreshToken, err := s.tokenMgr.IssueRefresh(payload)
	if err != nil {
		return TokenPair{}, apperrors.NewInternalError(err)
	}

	if err := s.sessions.Create(ctx, refreshToken, account.ID, s.tokenMgr.RefreshExpiry(time.Now())); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, account *domain.Account) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		AccountID:  account.ID,
		Email:      account.Email,
		Role:       account.Role,
		OccurredAt: time.Now(),
	})
}

func tokenPayload(account *domain.Account) domain.TokenPayload {
	return domain.TokenPayload{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	}
}
