package session

import (
	"context"
	"errors"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/permission"
	"net/http"
	"sync"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token" required:"true"`
}

type whoamiResponse struct {
	User  string   `json:"user" required:"true"`
	Roles []string `json:"roles"`
}

// Store owns the session of a single tab.
// Every write is serialized; subscribers are notified after every state change.
type Store struct {
	caller  gateway.Caller
	storage TokenStorage
	tabID   string

	mtx   sync.Mutex
	state State

	// generation is bumped on every token change and every identity resolution so that late whoami responses can be
	// recognized and discarded
	generation uint64

	// resolving is set while the identity resolution of the current generation is in flight
	resolving bool

	subscribersMtx sync.Mutex
	subscribers    map[uint64]func(State)
	nextSubscriber uint64
}

// NewStore creates a new anonymous session store for the given tab
func NewStore(caller gateway.Caller, storage TokenStorage, tabID string) *Store {
	return &Store{
		caller:      caller,
		storage:     storage,
		tabID:       tabID,
		state:       anonymousState(),
		subscribers: make(map[uint64]func(State)),
	}
}

// TabID returns the ID of the tab the store belongs to
func (store *Store) TabID() string {
	return store.tabID
}

// State returns a snapshot of the current session state
func (store *Store) State() State {
	store.mtx.Lock()
	defer store.mtx.Unlock()
	return store.state.clone()
}

// Token returns the currently held token; it is empty if none is held
func (store *Store) Token() string {
	store.mtx.Lock()
	defer store.mtx.Unlock()
	return store.state.Token
}

// Subscribe registers a function that is called with the new state after every state change.
// The returned function removes the subscription again.
func (store *Store) Subscribe(fn func(State)) func() {
	store.subscribersMtx.Lock()
	defer store.subscribersMtx.Unlock()
	id := store.nextSubscriber
	store.nextSubscriber++
	store.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			store.subscribersMtx.Lock()
			defer store.subscribersMtx.Unlock()
			delete(store.subscribers, id)
		})
	}
}

func (store *Store) notify(state State) {
	store.subscribersMtx.Lock()
	fns := make([]func(State), 0, len(store.subscribers))
	for _, fn := range store.subscribers {
		fns = append(fns, fn)
	}
	store.subscribersMtx.Unlock()

	for _, fn := range fns {
		fn(state.clone())
	}
}

// Login exchanges credentials for a token, persists it for the tab and resolves its identity.
// It reports whether a token was issued; a failed attempt changes neither the state nor the storage.
func (store *Store) Login(ctx context.Context, username, password string) bool {
	response := new(loginResponse)
	err := store.caller.Call(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body: &loginRequest{
			Username: username,
			Password: password,
		},
	}, response)
	if err != nil {
		log.Debug().Err(err).Str("tab", store.tabID).Str("username", username).Msg("login attempt failed")
		return false
	}
	if response.AccessToken == "" {
		log.Debug().Str("tab", store.tabID).Str("username", username).Msg("login response did not carry a token")
		return false
	}

	// Persisting and adopting the token is atomic with respect to Logout
	store.mtx.Lock()
	if err := store.storage.Save(ctx, store.tabID, response.AccessToken); err != nil {
		store.mtx.Unlock()
		log.Error().Err(err).Str("tab", store.tabID).Msg("could not persist the session token")
		return false
	}
	snapshot := store.adopt(response.AccessToken)
	store.mtx.Unlock()
	store.notify(snapshot)

	store.ResolveIdentity(ctx, response.AccessToken)
	return true
}

// adopt replaces the held token and resets the resolved identity; store.mtx has to be held
func (store *Store) adopt(token string) State {
	store.generation++
	store.resolving = false
	store.state = State{
		Status:      StatusAuthenticating,
		Token:       token,
		Roles:       permission.NewRoles(),
		Permissions: permission.Of(true, nil),
	}
	return store.state.clone()
}

// ResolveIdentity looks up the identity behind the given token.
// The call is a no-op if token is no longer the held one. Failures never propagate: the session is demoted instead,
// and a token the backend definitively rejected is dropped entirely. A lookup aborted through ctx yields no result
// and leaves the session as it was.
func (store *Store) ResolveIdentity(ctx context.Context, token string) {
	store.mtx.Lock()
	if token == "" || store.state.Token != token {
		store.mtx.Unlock()
		return
	}
	store.generation++
	store.resolving = true
	generation := store.generation
	store.mtx.Unlock()

	response := new(whoamiResponse)
	err := store.caller.Call(ctx, &gateway.Request{
		Method:     http.MethodGet,
		Path:       "/whoami",
		Credential: token,
	}, response)
	if err == nil && response.User == "" {
		err = errors.New("identity response did not name a user")
	}

	store.mtx.Lock()
	if store.generation != generation {
		store.mtx.Unlock()
		log.Debug().Str("tab", store.tabID).Msg("discarding stale identity resolution")
		return
	}
	store.resolving = false

	if err != nil && ctx.Err() != nil {
		store.mtx.Unlock()
		log.Debug().Err(err).Str("tab", store.tabID).Msg("identity resolution was aborted")
		return
	}

	clearToken := false
	if err != nil {
		var statusErr *gateway.StatusError
		clearToken = errors.As(err, &statusErr) && statusErr.Unauthenticated()
		log.Warn().Err(err).Str("tab", store.tabID).Bool("token_dropped", clearToken).Msg("could not resolve the session identity")

		if clearToken {
			store.generation++
			store.state = anonymousState()
			if err := store.storage.Clear(context.Background(), store.tabID); err != nil {
				log.Error().Err(err).Str("tab", store.tabID).Msg("could not clear a rejected session token")
			}
		} else {
			store.state = State{
				Status:      StatusDemoted,
				Token:       token,
				Roles:       permission.NewRoles(),
				Permissions: permission.Of(true, nil),
			}
		}
	} else {
		roles := permission.NewRoles(response.Roles...)
		store.state = State{
			Status:      StatusAuthenticated,
			Token:       token,
			Identity:    response.User,
			Roles:       roles,
			Permissions: permission.Of(true, roles),
		}
	}
	snapshot := store.state.clone()
	store.mtx.Unlock()

	store.notify(snapshot)
}

// Revalidate resolves the identity again if the session holds a token whose identity is not known, i.e. after a
// transient lookup failure or an aborted lookup. Nothing happens while a resolution is already in flight.
func (store *Store) Revalidate(ctx context.Context) {
	store.mtx.Lock()
	status := store.state.Status
	token := store.state.Token
	pending := store.resolving
	store.mtx.Unlock()

	if pending || (status != StatusDemoted && status != StatusAuthenticating) {
		return
	}
	log.Debug().Str("tab", store.tabID).Str("status", status.String()).Msg("revalidating the session identity")
	store.ResolveIdentity(ctx, token)
}

// Logout forgets the held token, the persisted one and the resolved identity.
// Calling it on an anonymous session is a no-op apart from clearing the storage again.
func (store *Store) Logout(ctx context.Context) {
	store.mtx.Lock()
	if err := store.storage.Clear(ctx, store.tabID); err != nil {
		log.Error().Err(err).Str("tab", store.tabID).Msg("could not clear the persisted session token")
	}
	wasAnonymous := store.state.Status == StatusAnonymous
	store.generation++
	store.resolving = false
	store.state = anonymousState()
	snapshot := store.state.clone()
	store.mtx.Unlock()

	if !wasAnonymous {
		store.notify(snapshot)
	}
}

// Restore re-adopts the token persisted for the tab (if any) and resolves its identity.
// It reports whether a token was found.
func (store *Store) Restore(ctx context.Context) (bool, error) {
	store.mtx.Lock()
	token, err := store.storage.Load(ctx, store.tabID)
	if err != nil || token == "" {
		store.mtx.Unlock()
		return false, err
	}
	adopted := store.state.Token != token
	var snapshot State
	if adopted {
		snapshot = store.adopt(token)
	}
	store.mtx.Unlock()

	if adopted {
		store.notify(snapshot)
	}
	store.ResolveIdentity(ctx, token)
	return true, nil
}
