package view

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestModel_StaleResultDiscarded(t *testing.T) {
	model := NewModel[[]string]()

	slow := model.Begin()
	fast := model.Begin()

	assert.True(t, model.Resolve(fast, []string{"new"}))
	assert.False(t, model.Resolve(slow, []string{"old"}))
	assert.False(t, model.Fail(slow, errors.New("late failure")))

	snapshot := model.Snapshot()
	assert.Equal(t, []string{"new"}, snapshot.Value)
	assert.True(t, snapshot.Loaded)
	assert.False(t, snapshot.Loading)
	assert.Empty(t, snapshot.Error)
}

func TestModel_FailKeepsValue(t *testing.T) {
	model := NewModel[int]()
	model.Resolve(model.Begin(), 3)

	assert.True(t, model.Fail(model.Begin(), errors.New("503")))
	snapshot := model.Snapshot()
	assert.Equal(t, 3, snapshot.Value)
	assert.Equal(t, "503", snapshot.Error)

	model.Begin()
	assert.Empty(t, model.Snapshot().Error)
}

func TestModel_Messages(t *testing.T) {
	model := NewModel[int]()

	model.Reject(errors.New("Only 1 machines available"))
	assert.Equal(t, "Only 1 machines available", model.Snapshot().Error)

	model.Notice("Reserved 2 machine(s).")
	snapshot := model.Snapshot()
	assert.Equal(t, "Reserved 2 machine(s).", snapshot.Message)
	assert.Empty(t, snapshot.Error)

	model.Clear()
	snapshot = model.Snapshot()
	assert.Empty(t, snapshot.Message)
	assert.Empty(t, snapshot.Error)
}

func TestModel_Invalidate(t *testing.T) {
	model := NewModel[string]()
	pending := model.Begin()
	model.Invalidate()

	assert.False(t, model.Resolve(pending, "late"))
	assert.False(t, model.Snapshot().Loaded)
	assert.False(t, model.Snapshot().Loading)
}
