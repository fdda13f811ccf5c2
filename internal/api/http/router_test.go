package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/storefront-service/internal/api/http/handlers"
	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/config"
	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/observability"
	"github.com/spec-kit/storefront-service/internal/persistence"
	"github.com/spec-kit/storefront-service/internal/service"
)

// ---- in-memory repositories ----

type memAccountRepo struct {
	accounts map[string]*domain.Account
	nextID   int
}

func (m *memAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	m.nextID++
	account.ID = fmt.Sprintf("acc-%d", m.nextID)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.accounts[account.ID] = account
	return nil
}

func (m *memAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return account, nil
}

func (m *memAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, account := range m.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccountRepo) TouchLastLogin(ctx context.Context, id string) error {
	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	account.LastLoginAt = &now
	return nil
}

type memSessionRepo struct {
	records map[string]*domain.RefreshRecord
}

func (m *memSessionRepo) Create(ctx context.Context, token, accountID string, expiresAt time.Time) error {
	m.records[token] = &domain.RefreshRecord{Token: token, AccountID: accountID, ExpiresAt: expiresAt}
	return nil
}

func (m *memSessionRepo) GetByToken(ctx context.Context, token string) (*domain.RefreshRecord, error) {
	record, ok := m.records[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return record, nil
}

func (m *memSessionRepo) Revoke(ctx context.Context, token, accountID string) error {
	record, ok := m.records[token]
	if !ok || record.AccountID != accountID {
		return pgx.ErrNoRows
	}
	delete(m.records, token)
	return nil
}

func (m *memSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// ---- harness ----

type testServer struct {
	app      *fiber.App
	accounts *memAccountRepo
	sessions *memSessionRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  "15m",
			RefreshTokenTTL: "30d",
			BcryptCost:      bcrypt.MinCost,
		},
	}

	accounts := &memAccountRepo{accounts: map[string]*domain.Account{}}
	sessions := &memSessionRepo{records: map[string]*domain.RefreshRecord{}}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		AccountRepo: accounts,
		SessionRepo: sessions,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accounts)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	return &testServer{app: app, accounts: accounts, sessions: sessions}
}

func (s *testServer) request(t *testing.T, method, path, accessToken string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func registerDefault(t *testing.T, s *testServer) (accessToken, refreshToken string) {
	t.Helper()

	resp, body := s.request(t, nethttp.MethodPost, "/auth/register", "", map[string]string{
		"email":    "a@b.com",
		"password": "Abcdef12",
		"name":     "A",
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]any)
	return data["accessToken"].(string), data["refreshToken"].(string)
}

// ---- tests ----

func TestRegisterThenMe(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	accessToken, refreshToken := registerDefault(t, server)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	resp, body := server.request(t, nethttp.MethodGet, "/auth/me", accessToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, false, user["isBanned"])
	// The password hash never crosses the boundary.
	_, exists := user["passwordHash"]
	assert.False(t, exists)
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, _ := server.request(t, nethttp.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@b.com",
	})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestRegister_WeakPassword(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, body := server.request(t, nethttp.MethodPost, "/auth/register", "", map[string]string{
		"email":    "a@b.com",
		"password": "weak",
		"name":     "A",
	})
	require.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	message := body["error"].(map[string]any)["message"].(string)
	assert.Contains(t, message, "8 characters")
	assert.Contains(t, message, "uppercase")
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	registerDefault(t, server)

	before := len(server.sessions.records)
	resp, body := server.request(t, nethttp.MethodPost, "/auth/login", "", map[string]string{
		"email":    "a@b.com",
		"password": "Wrong123",
	})
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	_, hasData := body["data"]
	assert.False(t, hasData)
	assert.Len(t, server.sessions.records, before)
}

func TestLogin_BannedAccount(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	registerDefault(t, server)
	server.accounts.accounts["acc-1"].IsBanned = true

	resp, _ := server.request(t, nethttp.MethodPost, "/auth/login", "", map[string]string{
		"email":    "a@b.com",
		"password": "Abcdef12",
	})
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
}

func TestRefresh_Flow(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	_, refreshToken := registerDefault(t, server)

	resp, _ := server.request(t, nethttp.MethodPost, "/auth/refresh", "", map[string]string{})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	resp, body := server.request(t, nethttp.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	newAccess := body["data"].(map[string]any)["accessToken"].(string)
	require.NotEmpty(t, newAccess)

	// The new access token works against a protected endpoint.
	resp, _ = server.request(t, nethttp.MethodGet, "/auth/me", newAccess, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, _ = server.request(t, nethttp.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": "garbage.token.value",
	})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	accessToken, refreshToken := registerDefault(t, server)

	// Requires a valid access token.
	resp, _ := server.request(t, nethttp.MethodPost, "/auth/logout", "", map[string]string{
		"refreshToken": refreshToken,
	})
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, _ = server.request(t, nethttp.MethodPost, "/auth/logout", accessToken, map[string]string{
		"refreshToken": refreshToken,
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Empty(t, server.sessions.records)

	// The revoked refresh token can no longer be exchanged.
	resp, _ = server.request(t, nethttp.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestSession_OptionalGate(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	resp, body := server.request(t, nethttp.MethodGet, "/auth/session", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]any)["authenticated"])

	accessToken, _ := registerDefault(t, server)
	resp, body = server.request(t, nethttp.MethodGet, "/auth/session", accessToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]any)["authenticated"])
}
