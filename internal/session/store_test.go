package session_test

import (
	"context"
	"github.com/skybi/reservation-console/internal/backendtest"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/session/storage/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"sync"
	"testing"
	"time"
)

const tab = "tab-1"

func setup(t *testing.T) (*backendtest.Backend, *inmem.Driver, *session.Store) {
	backend := backendtest.New(t)
	backend.AddUser("alice", "secret", false)
	backend.AddUser("root", "toor", true)

	storage, err := inmem.New(time.Hour)
	require.NoError(t, err)
	return backend, storage, session.NewStore(gateway.New(backend.URL()), storage, tab)
}

func persisted(t *testing.T, storage session.TokenStorage) string {
	token, err := storage.Load(context.Background(), tab)
	require.NoError(t, err)
	return token
}

func assertSessionConsistent(t *testing.T, state session.State) {
	if !state.HasToken() {
		assert.Empty(t, state.Identity)
		assert.Empty(t, state.Roles)
		assert.Equal(t, permission.Of(false, nil), state.Permissions)
	}
}

func TestLogin_Success(t *testing.T) {
	_, storage, store := setup(t)

	ok := store.Login(context.Background(), "alice", "secret")
	require.True(t, ok)

	state := store.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	assert.Equal(t, "alice", state.Identity)
	assert.Empty(t, state.Roles)
	assert.False(t, state.IsAdmin())
	assert.NotEmpty(t, state.Token)
	assert.Equal(t, state.Token, persisted(t, storage))
	assertSessionConsistent(t, state)
}

func TestLogin_Admin(t *testing.T) {
	_, _, store := setup(t)

	require.True(t, store.Login(context.Background(), "root", "toor"))
	state := store.State()
	assert.True(t, state.IsAdmin())
	assert.True(t, state.Permissions.Has(permission.CapabilityManageUsers))
}

func TestLogin_WrongPassword(t *testing.T) {
	_, storage, store := setup(t)

	ok := store.Login(context.Background(), "alice", "wrong")
	assert.False(t, ok)

	state := store.State()
	assert.Equal(t, session.StatusAnonymous, state.Status)
	assert.Empty(t, state.Token)
	assert.Empty(t, persisted(t, storage))
	assertSessionConsistent(t, state)
}

func TestLogin_ResponseWithoutToken(t *testing.T) {
	backend, storage, store := setup(t)
	require.True(t, store.Login(context.Background(), "alice", "secret"))
	before := store.State()

	backend.Override(http.MethodPost, "/login", http.StatusOK, `{"token_type": "Bearer"}`)
	assert.False(t, store.Login(context.Background(), "root", "toor"))
	assert.Equal(t, before, store.State())
	assert.Equal(t, before.Token, persisted(t, storage))

	backend.Override(http.MethodPost, "/login", http.StatusOK, ``)
	assert.False(t, store.Login(context.Background(), "root", "toor"))
	assert.Equal(t, before, store.State())
}

func TestLogin_BackendUnreachable(t *testing.T) {
	storage, err := inmem.New(time.Hour)
	require.NoError(t, err)
	store := session.NewStore(gateway.New("http://127.0.0.1:1/api"), storage, tab)

	assert.False(t, store.Login(context.Background(), "alice", "secret"))
	assert.Equal(t, session.StatusAnonymous, store.State().Status)
	assert.Empty(t, persisted(t, storage))
}

func TestResolveIdentity_TransientFailureDemotes(t *testing.T) {
	backend, storage, store := setup(t)
	backend.Override(http.MethodGet, "/whoami", http.StatusBadGateway, `upstream down`)

	require.True(t, store.Login(context.Background(), "alice", "secret"))

	state := store.State()
	assert.Equal(t, session.StatusDemoted, state.Status)
	assert.NotEmpty(t, state.Token)
	assert.Empty(t, state.Identity)
	assert.Empty(t, state.Roles)
	assert.Equal(t, state.Token, persisted(t, storage))

	backend.ClearOverride(http.MethodGet, "/whoami")
	store.ResolveIdentity(context.Background(), state.Token)
	assert.Equal(t, session.StatusAuthenticated, store.State().Status)
	assert.Equal(t, "alice", store.State().Identity)
}

func TestResolveIdentity_MalformedResponseDemotes(t *testing.T) {
	backend, _, store := setup(t)
	backend.Override(http.MethodGet, "/whoami", http.StatusOK, `{"roles": ["admin"]}`)

	require.True(t, store.Login(context.Background(), "alice", "secret"))
	state := store.State()
	assert.Equal(t, session.StatusDemoted, state.Status)
	assert.False(t, state.IsAdmin())
}

func TestResolveIdentity_RejectedTokenIsDropped(t *testing.T) {
	backend, storage, store := setup(t)
	backend.Override(http.MethodGet, "/whoami", http.StatusUnauthorized, `{"error": "unauthorized"}`)

	require.True(t, store.Login(context.Background(), "alice", "secret"))

	state := store.State()
	assert.Equal(t, session.StatusAnonymous, state.Status)
	assert.Empty(t, state.Token)
	assert.Empty(t, persisted(t, storage))
	assertSessionConsistent(t, state)
}

func TestResolveIdentity_IgnoresForeignToken(t *testing.T) {
	backend, _, store := setup(t)
	require.True(t, store.Login(context.Background(), "alice", "secret"))
	calls := backend.Calls(http.MethodGet, "/whoami")

	store.ResolveIdentity(context.Background(), "some-other-token")
	assert.Equal(t, calls, backend.Calls(http.MethodGet, "/whoami"))
	assert.Equal(t, "alice", store.State().Identity)
}

func TestResolveIdentity_StaleResponseDiscarded(t *testing.T) {
	backend, _, store := setup(t)
	require.True(t, store.Login(context.Background(), "alice", "secret"))
	token := store.Token()

	release := backend.Hold(http.MethodGet, "/whoami")
	done := make(chan struct{})
	go func() {
		store.ResolveIdentity(context.Background(), token)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return backend.Calls(http.MethodGet, "/whoami") == 2
	}, 5*time.Second, 10*time.Millisecond)
	store.Logout(context.Background())
	release()
	<-done

	state := store.State()
	assert.Equal(t, session.StatusAnonymous, state.Status)
	assertSessionConsistent(t, state)
}

func TestLogout(t *testing.T) {
	_, storage, store := setup(t)
	require.True(t, store.Login(context.Background(), "root", "toor"))

	store.Logout(context.Background())
	state := store.State()
	assert.Equal(t, session.StatusAnonymous, state.Status)
	assert.Empty(t, persisted(t, storage))
	assertSessionConsistent(t, state)

	store.Logout(context.Background())
	assert.Equal(t, state, store.State())
}

func TestRestore(t *testing.T) {
	backend, storage, store := setup(t)
	require.True(t, store.Login(context.Background(), "alice", "secret"))
	token := store.Token()

	reloaded := session.NewStore(gateway.New(backend.URL()), storage, tab)
	found, err := reloaded.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, token, reloaded.Token())
	assert.Equal(t, "alice", reloaded.State().Identity)

	otherTab := session.NewStore(gateway.New(backend.URL()), storage, "tab-2")
	found, err = otherTab.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, session.StatusAnonymous, otherTab.State().Status)
}

func TestSubscribe(t *testing.T) {
	_, _, store := setup(t)

	var mtx sync.Mutex
	var seen []session.Status
	unsubscribe := store.Subscribe(func(state session.State) {
		mtx.Lock()
		defer mtx.Unlock()
		seen = append(seen, state.Status)
	})

	require.True(t, store.Login(context.Background(), "alice", "secret"))
	store.Logout(context.Background())
	unsubscribe()
	unsubscribe()
	require.True(t, store.Login(context.Background(), "alice", "secret"))

	mtx.Lock()
	defer mtx.Unlock()
	assert.Equal(t, []session.Status{
		session.StatusAuthenticating,
		session.StatusAuthenticated,
		session.StatusAnonymous,
	}, seen)
}

func TestState_IsSnapshot(t *testing.T) {
	_, _, store := setup(t)
	require.True(t, store.Login(context.Background(), "root", "toor"))

	state := store.State()
	delete(state.Roles, permission.RoleAdmin)
	assert.True(t, store.State().IsAdmin())
}

func TestResolveIdentity_AbortedLookupKeepsSession(t *testing.T) {
	backend, storage, store := setup(t)
	release := backend.Hold(http.MethodGet, "/whoami")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() {
		result <- store.Login(ctx, "root", "toor")
	}()
	require.Eventually(t, func() bool {
		return backend.Calls(http.MethodGet, "/whoami") == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.True(t, <-result)

	state := store.State()
	assert.Equal(t, session.StatusAuthenticating, state.Status)
	assert.NotEmpty(t, state.Token)
	assert.Equal(t, state.Token, persisted(t, storage))

	release()
	store.Revalidate(context.Background())
	state = store.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	assert.True(t, state.IsAdmin())
}

func TestRevalidate(t *testing.T) {
	backend, _, store := setup(t)
	backend.Override(http.MethodGet, "/whoami", http.StatusServiceUnavailable, ``)
	require.True(t, store.Login(context.Background(), "root", "toor"))
	require.Equal(t, session.StatusDemoted, store.State().Status)

	store.Revalidate(context.Background())
	assert.Equal(t, session.StatusDemoted, store.State().Status)

	backend.ClearOverride(http.MethodGet, "/whoami")
	store.Revalidate(context.Background())
	assert.Equal(t, session.StatusAuthenticated, store.State().Status)
	assert.Equal(t, "root", store.State().Identity)

	calls := backend.Calls(http.MethodGet, "/whoami")
	store.Revalidate(context.Background())
	assert.Equal(t, calls, backend.Calls(http.MethodGet, "/whoami"))

	store.Logout(context.Background())
	store.Revalidate(context.Background())
	assert.Equal(t, calls, backend.Calls(http.MethodGet, "/whoami"))
}

// pausingStorage blocks right after persisting a token until proceed is closed
type pausingStorage struct {
	session.TokenStorage
	saved   chan struct{}
	proceed chan struct{}
}

func (storage *pausingStorage) Save(ctx context.Context, tabID, token string) error {
	err := storage.TokenStorage.Save(ctx, tabID, token)
	close(storage.saved)
	<-storage.proceed
	return err
}

func TestLogin_ConcurrentLogoutKeepsStorageConsistent(t *testing.T) {
	backend, underlying, _ := setup(t)
	storage := &pausingStorage{
		TokenStorage: underlying,
		saved:        make(chan struct{}),
		proceed:      make(chan struct{}),
	}
	store := session.NewStore(gateway.New(backend.URL()), storage, tab)

	loggedIn := make(chan bool, 1)
	go func() {
		loggedIn <- store.Login(context.Background(), "alice", "secret")
	}()
	<-storage.saved

	loggedOut := make(chan struct{})
	go func() {
		store.Logout(context.Background())
		close(loggedOut)
	}()
	time.Sleep(50 * time.Millisecond)
	close(storage.proceed)
	require.True(t, <-loggedIn)
	<-loggedOut

	assert.Equal(t, persisted(t, underlying), store.Token())
	assertSessionConsistent(t, store.State())
}
