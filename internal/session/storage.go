package session

import "context"

// TokenStorage defines the API of the tab-scoped token persistence
type TokenStorage interface {
	// Load retrieves the token persisted for a tab; it is empty if none is
	Load(ctx context.Context, tabID string) (string, error)

	// Save persists the token of a tab, replacing an existing one
	Save(ctx context.Context, tabID, token string) error

	// Clear removes the token of a tab
	Clear(ctx context.Context, tabID string) error

	// TerminateExpired removes the tokens of all tabs that outlived their lifetime
	TerminateExpired(ctx context.Context) (int, error)
}
