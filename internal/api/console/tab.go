package console

import (
	"context"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/reservation"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/user"
	"net/http"
	"sync"
)

const tabCookieName = "reservation_console_tab"

type contextValue string

const contextValueTab contextValue = "tab"

// tab holds the session and the mounted views of a single browser tab.
// The views are remounted whenever the session is dropped or replaced so that no result of a previous session leaks
// into the next one.
type tab struct {
	id     string
	caller gateway.Caller
	store  *session.Store

	mtx          sync.Mutex
	orchestrator *reservation.Orchestrator
	directory    *user.Directory

	unsubscribe func()
}

func newTab(id string, caller gateway.Caller, storage session.TokenStorage) *tab {
	obj := &tab{
		id:     id,
		caller: caller,
		store:  session.NewStore(caller, storage, id),
	}
	obj.mount()
	obj.unsubscribe = obj.store.Subscribe(func(state session.State) {
		if state.Status == session.StatusAnonymous || state.Status == session.StatusAuthenticating {
			obj.mount()
		}
	})
	return obj
}

// mount replaces the mounted views by fresh ones, cancelling everything the old ones had in flight
func (obj *tab) mount() {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	if obj.orchestrator != nil {
		obj.orchestrator.Close()
	}
	if obj.directory != nil {
		obj.directory.Close()
	}
	obj.orchestrator = reservation.New(obj.caller, obj.store)
	obj.directory = user.NewDirectory(obj.caller, obj.store)
}

func (obj *tab) close() {
	obj.unsubscribe()
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	obj.orchestrator.Close()
	obj.directory.Close()
}

// views returns the currently mounted views
func (obj *tab) views() (*reservation.Orchestrator, *user.Directory) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	return obj.orchestrator, obj.directory
}

func tabFromContext(ctx context.Context) *tab {
	return ctx.Value(contextValueTab).(*tab)
}

// MiddlewareAttachTab resolves the tab a request belongs to, issuing a new tab cookie if necessary
func (service *Service) MiddlewareAttachTab(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		id := ""
		if cookie, err := request.Cookie(tabCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				id = cookie.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(writer, &http.Cookie{
				Name:     tabCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   service.Config.ConsoleSecureCookies,
				SameSite: http.SameSiteStrictMode,
			})
		}

		obj := service.attachTab(request.Context(), id)
		next(writer, request.WithContext(context.WithValue(request.Context(), contextValueTab, obj)))
	}
}

// attachTab returns the tab with the given ID.
// Unknown tabs are created and restore the token persisted for them, just like a reloaded page. Known tabs whose
// identity is unresolved try to resolve it again.
func (service *Service) attachTab(ctx context.Context, id string) *tab {
	service.tabsMtx.Lock()
	obj, ok := service.tabs.Touch(id)
	if ok {
		service.tabsMtx.Unlock()
		obj.store.Revalidate(ctx)
		return obj
	}
	obj = newTab(id, service.Caller, service.Storage)
	service.tabs.Set(id, obj)
	service.tabsMtx.Unlock()

	found, err := obj.store.Restore(ctx)
	if err != nil {
		log.Error().Err(err).Str("tab", id).Msg("could not restore the persisted tab token")
	} else if found {
		log.Debug().Str("tab", id).Str("status", obj.store.State().Status.String()).Msg("restored a tab session")
	}
	return obj
}
