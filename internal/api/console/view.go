package console

import (
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/skybi/reservation-console/internal/view"
	"time"
)

type sessionView struct {
	Status       string            `json:"status"`
	Identity     string            `json:"identity,omitempty"`
	Roles        []permission.Role `json:"roles"`
	Capabilities []string          `json:"capabilities"`
}

func newSessionView(state session.State) *sessionView {
	return &sessionView{
		Status:       state.Status.String(),
		Identity:     state.Identity,
		Roles:        state.Roles.Slice(),
		Capabilities: permission.Names(state.Permissions),
	}
}

type listView[T any] struct {
	Session   *sessionView `json:"session"`
	Items     T            `json:"items"`
	Message   string       `json:"message,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

func newListView[T any](state session.State, snapshot view.Snapshot[T]) *listView[T] {
	out := &listView[T]{
		Session: newSessionView(state),
		Items:   snapshot.Value,
		Message: snapshot.Message,
		Error:   snapshot.Error,
	}
	if !snapshot.UpdatedAt.IsZero() {
		updatedAt := snapshot.UpdatedAt
		out.UpdatedAt = &updatedAt
	}
	return out
}
