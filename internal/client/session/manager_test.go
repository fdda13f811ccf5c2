package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-service/internal/client/api"
	"github.com/spec-kit/storefront-service/internal/client/storage"
	"github.com/spec-kit/storefront-service/internal/domain"
)

// ---- fakes ----

type fakeAPI struct {
	loginResult    api.AuthResult
	loginErr       error
	registerResult api.AuthResult
	registerErr    error
	refreshToken   string
	refreshErr     error
	logoutErr      error
	meResult       domain.PublicAccount
	meErrs         []error // consumed per call; nil entry means success

	accessToken string
	meCalls     int
	logoutCalls int
}

func (f *fakeAPI) Register(ctx context.Context, email, password, name string) (api.AuthResult, error) {
	return f.registerResult, f.registerErr
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (api.AuthResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.refreshToken, nil
}

func (f *fakeAPI) Logout(ctx context.Context, refreshToken string) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) Me(ctx context.Context) (domain.PublicAccount, error) {
	var err error
	if f.meCalls < len(f.meErrs) {
		err = f.meErrs[f.meCalls]
	}
	f.meCalls++
	if err != nil {
		return domain.PublicAccount{}, err
	}
	return f.meResult, nil
}

func (f *fakeAPI) SetAccessToken(token string) {
	f.accessToken = token
}

type memStore struct {
	session *storage.PersistedSession
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (*storage.PersistedSession, error) {
	if m.session == nil {
		return nil, nil
	}
	copied := *m.session
	return &copied, nil
}

func (m *memStore) Save(ctx context.Context, session *storage.PersistedSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *session
	m.session = &copied
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.session = nil
	return nil
}

// ---- helpers ----

func testAccount() domain.PublicAccount {
	return domain.PublicAccount{ID: "acc-1", Email: "a@b.com", Name: "A", Role: domain.RoleUser}
}

func persistedSession() *storage.PersistedSession {
	return &storage.PersistedSession{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		Account:      testAccount(),
	}
}

// ---- tests ----

func TestRestore_NoPersistedSession(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{}
	manager := NewManager(apiClient, &memStore{})

	require.NoError(t, manager.Restore(context.Background()))
	assert.Equal(t, StateLoggedOut, manager.State())
	assert.False(t, manager.IsAuthenticated())
	assert.Zero(t, apiClient.meCalls)
}

func TestRestore_AccessTokenStillValid(t *testing.T) {
	t.Parallel()

	fresh := testAccount()
	fresh.Name = "A Updated"
	apiClient := &fakeAPI{meResult: fresh}
	store := &memStore{session: persistedSession()}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Restore(context.Background()))

	assert.Equal(t, StateActive, manager.State())
	assert.True(t, manager.IsAuthenticated())
	// Snapshot is eagerly refreshed from the server.
	assert.Equal(t, "A Updated", manager.Account().Name)
	assert.Equal(t, "A Updated", store.session.Account.Name)
	assert.Equal(t, "stored-access", apiClient.accessToken)
}

func TestRestore_RejectedAccessToken_RefreshRecovers(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		meErrs:       []error{&api.APIError{Status: 401, Message: "token expired"}, nil},
		meResult:     testAccount(),
		refreshToken: "new-access",
	}
	store := &memStore{session: persistedSession()}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Restore(context.Background()))

	assert.Equal(t, StateActive, manager.State())
	assert.Equal(t, "new-access", apiClient.accessToken)
	assert.Equal(t, "new-access", store.session.AccessToken)
	// Refresh token is reused, not rotated.
	assert.Equal(t, "stored-refresh", store.session.RefreshToken)
	assert.Equal(t, 2, apiClient.meCalls)
}

func TestRestore_RefreshFails_LogsOut(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		meErrs:     []error{&api.APIError{Status: 401, Message: "token expired"}},
		refreshErr: &api.APIError{Status: 401, Message: "refresh token expired"},
	}
	store := &memStore{session: persistedSession()}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Restore(context.Background()))

	assert.Equal(t, StateLoggedOut, manager.State())
	assert.Nil(t, manager.Account())
	assert.Nil(t, store.session)
	assert.Equal(t, "", apiClient.accessToken)
}

func TestRestore_NoRefreshToken_LogsOut(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{meErrs: []error{&api.APIError{Status: 401, Message: "invalid token"}}}
	persisted := persistedSession()
	persisted.RefreshToken = ""
	store := &memStore{session: persisted}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Restore(context.Background()))

	assert.Equal(t, StateLoggedOut, manager.State())
	assert.Nil(t, store.session)
}

func TestRestore_RetryAfterRefreshAlsoFails_LogsOut(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		meErrs: []error{
			&api.APIError{Status: 401, Message: "token expired"},
			&api.APIError{Status: 403, Message: "account is banned"},
		},
		refreshToken: "new-access",
	}
	store := &memStore{session: persistedSession()}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Restore(context.Background()))

	assert.Equal(t, StateLoggedOut, manager.State())
	assert.Nil(t, store.session)
	// Exactly one refresh retry, no loop.
	assert.Equal(t, 2, apiClient.meCalls)
}

func TestLogin_Success_PersistsSession(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		loginResult: api.AuthResult{
			User:         testAccount(),
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
		},
	}
	store := &memStore{}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Login(context.Background(), "a@b.com", "Abcdef12"))

	assert.Equal(t, StateActive, manager.State())
	require.NotNil(t, store.session)
	assert.Equal(t, "new-access", store.session.AccessToken)
	assert.Equal(t, "new-refresh", store.session.RefreshToken)
	assert.Equal(t, "a@b.com", store.session.Account.Email)
	assert.Equal(t, "new-access", apiClient.accessToken)
}

func TestLogin_Failure_LeavesPriorStateUntouched(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		meResult: testAccount(),
		loginErr: &api.APIError{Status: 401, Message: "invalid credentials"},
	}
	store := &memStore{session: persistedSession()}
	manager := NewManager(apiClient, store)
	require.NoError(t, manager.Restore(context.Background()))
	require.Equal(t, StateActive, manager.State())

	err := manager.Login(context.Background(), "a@b.com", "Wrong123")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())

	assert.Equal(t, StateActive, manager.State())
	assert.NotNil(t, store.session)
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		registerResult: api.AuthResult{
			User:         testAccount(),
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
		},
	}
	store := &memStore{}
	manager := NewManager(apiClient, store)

	require.NoError(t, manager.Register(context.Background(), "a@b.com", "Abcdef12", "A"))
	assert.Equal(t, StateActive, manager.State())
	assert.NotNil(t, store.session)
}

func TestLogout_ClearsEvenWhenServerRevokeFails(t *testing.T) {
	t.Parallel()

	apiClient := &fakeAPI{
		meResult:  testAccount(),
		logoutErr: errors.New("network unreachable"),
	}
	store := &memStore{session: persistedSession()}
	manager := NewManager(apiClient, store)
	require.NoError(t, manager.Restore(context.Background()))

	manager.Logout(context.Background())

	assert.Equal(t, StateLoggedOut, manager.State())
	assert.Nil(t, manager.Account())
	assert.Nil(t, store.session)
	assert.Equal(t, "", apiClient.accessToken)
	assert.Equal(t, 1, apiClient.logoutCalls)

	// Logout again is a no-op, still logged out.
	manager.Logout(context.Background())
	assert.Equal(t, StateLoggedOut, manager.State())
	assert.Equal(t, 1, apiClient.logoutCalls)
}
