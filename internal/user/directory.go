package user

import (
	"context"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/gateway"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/view"
	"net/http"
)

// Directory administers the user accounts of the backend.
// Like every other list view, mutations are followed by a re-fetch instead of local patching.
type Directory struct {
	caller      gateway.Caller
	credentials session.Holder
	scope       *view.Scope
	users       *view.Model[[]*User]
}

// NewDirectory creates a new user directory performing its calls on behalf of the given credentials
func NewDirectory(caller gateway.Caller, credentials session.Holder) *Directory {
	return &Directory{
		caller:      caller,
		credentials: credentials,
		scope:       view.NewScope(),
		users:       view.NewModel[[]*User](),
	}
}

// Close cancels every in-flight call
func (directory *Directory) Close() {
	directory.scope.Close()
	directory.users.Invalidate()
}

// Users returns the user list view model
func (directory *Directory) Users() view.Snapshot[[]*User] {
	return directory.users.Snapshot()
}

func (directory *Directory) call(ctx context.Context, request *gateway.Request, target any) error {
	ctx, done, err := directory.scope.Bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	request.Credential = directory.credentials.State().Token
	return directory.caller.Call(ctx, request, target)
}

// List fetches all users
func (directory *Directory) List(ctx context.Context) ([]*User, error) {
	generation := directory.users.Begin()
	var users []*User
	if err := directory.call(ctx, &gateway.Request{Method: http.MethodGet, Path: "/users"}, &users); err != nil {
		directory.users.Fail(generation, err)
		return nil, err
	}
	if users == nil {
		users = []*User{}
	}
	directory.users.Resolve(generation, users)
	return users, nil
}

// Create creates a new user and re-fetches the list
func (directory *Directory) Create(ctx context.Context, create *Create) error {
	return directory.mutate(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/users",
		Body:   create,
	})
}

// Delete deletes a user by their username and re-fetches the list
func (directory *Directory) Delete(ctx context.Context, username string) error {
	return directory.mutate(ctx, &gateway.Request{
		Method: http.MethodDelete,
		Path:   "/users/" + gateway.PathEscape(username),
	})
}

func (directory *Directory) mutate(ctx context.Context, request *gateway.Request) error {
	directory.users.Clear()
	if err := directory.call(ctx, request, nil); err != nil {
		directory.users.Reject(err)
		return err
	}
	if _, err := directory.List(ctx); err != nil {
		log.Warn().Err(err).Msg("could not refresh the user list after a mutation")
	}
	return nil
}
