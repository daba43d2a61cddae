package view

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestScope_CloseCancelsBound(t *testing.T) {
	scope := NewScope()
	ctx, done, err := scope.Bind(context.Background())
	require.NoError(t, err)
	defer done()

	scope.Close()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context was not cancelled")
	}
	assert.True(t, scope.Closed())

	_, _, err = scope.Bind(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestScope_ParentCancellation(t *testing.T) {
	scope := NewScope()
	parent, cancel := context.WithCancel(context.Background())
	ctx, done, err := scope.Bind(parent)
	require.NoError(t, err)
	defer done()

	cancel()
	<-ctx.Done()
	assert.False(t, scope.Closed())
}
