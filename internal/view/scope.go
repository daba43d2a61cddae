package view

import "context"

// Scope bounds the calls issued on behalf of a mounted view; closing it cancels all of them
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScope creates a new open scope
func NewScope() *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Bind derives a context that is cancelled by either the parent or Close.
// The returned function must be called once the call finished.
func (scope *Scope) Bind(parent context.Context) (context.Context, context.CancelFunc, error) {
	if err := scope.ctx.Err(); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(scope.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

// Close cancels every bound context
func (scope *Scope) Close() {
	scope.cancel()
}

// Closed reports whether Close was called
func (scope *Scope) Closed() bool {
	return scope.ctx.Err() != nil
}
