// Package session manages the client-side auth session: restoring it on
// startup, refreshing an expired access token, and falling back to a clean
// logged-out state when nothing can be recovered.
package session

import (
	"context"

	"github.com/spec-kit/storefront-service/internal/client/api"
	"github.com/spec-kit/storefront-service/internal/client/storage"
	"github.com/spec-kit/storefront-service/internal/domain"
)

// State is the manager's position in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateRestoring
	StateActive
	StateRefreshing
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRestoring:
		return "restoring"
	case StateActive:
		return "active"
	case StateRefreshing:
		return "refreshing"
	case StateLoggedOut:
		return "logged_out"
	}
	return "unknown"
}

// API is the subset of the HTTP client the manager depends on.
type API interface {
	Register(ctx context.Context, email, password, name string) (api.AuthResult, error)
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (domain.PublicAccount, error)
	SetAccessToken(token string)
}

// Manager drives the session state machine. Calls are not internally
// serialized; a UI issuing a second login while one is in flight must
// gate that itself.
type Manager struct {
	api   API
	store storage.Store

	state        State
	account      *domain.PublicAccount
	refreshToken string
}

// NewManager builds a manager in the Idle state.
func NewManager(apiClient API, store storage.Store) *Manager {
	return &Manager{api: apiClient, store: store, state: StateIdle}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Account returns the cached account snapshot, nil when logged out.
func (m *Manager) Account() *domain.PublicAccount {
	return m.account
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	return m.state == StateActive && m.account != nil
}

// Restore replays the persisted session on startup. The flow is linear:
// load, optimistically activate from the cached snapshot, verify against
// the server, exchange the refresh token once if the access token was
// rejected, and clear everything if none of that works.
func (m *Manager) Restore(ctx context.Context) error {
	m.state = StateRestoring

	persisted, err := m.store.Load(ctx)
	if err != nil || persisted == nil {
		m.clearLocal(ctx)
		return err
	}

	// Optimistic activation from the cached snapshot.
	m.api.SetAccessToken(persisted.AccessToken)
	m.refreshToken = persisted.RefreshToken
	account := persisted.Account
	m.account = &account
	m.state = StateActive

	fresh, err := m.api.Me(ctx)
	if err == nil {
		m.adoptAccount(ctx, persisted.AccessToken, fresh)
		return nil
	}

	if m.refreshToken == "" {
		m.clearLocal(ctx)
		return nil
	}

	m.state = StateRefreshing
	newAccessToken, err := m.api.Refresh(ctx, m.refreshToken)
	if err != nil {
		m.clearLocal(ctx)
		return nil
	}

	m.api.SetAccessToken(newAccessToken)
	fresh, err = m.api.Me(ctx)
	if err != nil {
		m.clearLocal(ctx)
		return nil
	}

	m.adoptAccount(ctx, newAccessToken, fresh)
	return nil
}

// Login authenticates and activates the session. On failure the previous
// state stays untouched and the server's message is surfaced verbatim.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	result, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return m.activate(ctx, result)
}

// Register creates an account and activates the session.
func (m *Manager) Register(ctx context.Context, email, password, name string) error {
	result, err := m.api.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	return m.activate(ctx, result)
}

// Logout revokes the session server-side on a best-effort basis and always
// clears local state; a network failure must never leave the client stuck
// logged in.
func (m *Manager) Logout(ctx context.Context) {
	if m.refreshToken != "" {
		_ = m.api.Logout(ctx, m.refreshToken)
	}
	m.clearLocal(ctx)
}

func (m *Manager) activate(ctx context.Context, result api.AuthResult) error {
	persisted := &storage.PersistedSession{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Account:      result.User,
	}
	if err := m.store.Save(ctx, persisted); err != nil {
		return err
	}

	m.api.SetAccessToken(result.AccessToken)
	m.refreshToken = result.RefreshToken
	account := result.User
	m.account = &account
	m.state = StateActive
	return nil
}

func (m *Manager) adoptAccount(ctx context.Context, accessToken string, account domain.PublicAccount) {
	m.account = &account
	m.state = StateActive
	_ = m.store.Save(ctx, &storage.PersistedSession{
		AccessToken:  accessToken,
		RefreshToken: m.refreshToken,
		Account:      account,
	})
}

func (m *Manager) clearLocal(ctx context.Context) {
	_ = m.store.Clear(ctx)
	m.api.SetAccessToken("")
	m.refreshToken = ""
	m.account = nil
	m.state = StateLoggedOut
}
