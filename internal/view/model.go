// Package view holds the client-side state of a single list view
package view

import (
	"sync"
	"time"
)

// Snapshot represents an immutable copy of a model's state
type Snapshot[T any] struct {
	Value      T
	Loaded     bool
	Loading    bool
	Error      string
	Message    string
	UpdatedAt  time.Time
	Generation uint64
}

// Model holds the last confirmed value of a view together with its inline error and success messages.
// Every fetch is tagged with a generation by Begin; results of any but the newest generation are discarded.
type Model[T any] struct {
	mtx        sync.Mutex
	generation uint64
	value      T
	loaded     bool
	loading    bool
	err        string
	message    string
	updatedAt  time.Time
}

// NewModel creates a new empty model
func NewModel[T any]() *Model[T] {
	return new(Model[T])
}

// Begin marks the start of a fetch and returns its generation.
// A fresh fetch clears a previously displayed error.
func (model *Model[T]) Begin() uint64 {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	model.generation++
	model.loading = true
	model.err = ""
	return model.generation
}

// Resolve applies the result of the fetch with the given generation.
// It reports whether the result was applied; stale results leave the model untouched.
func (model *Model[T]) Resolve(generation uint64, value T) bool {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	if generation != model.generation {
		return false
	}
	model.value = value
	model.loaded = true
	model.loading = false
	model.updatedAt = time.Now()
	return true
}

// Fail records the failure of the fetch with the given generation while keeping the previous value.
// It reports whether the failure was applied.
func (model *Model[T]) Fail(generation uint64, err error) bool {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	if generation != model.generation {
		return false
	}
	model.loading = false
	model.err = err.Error()
	return true
}

// Clear resets the inline error and message, i.e. when a mutation is initiated
func (model *Model[T]) Clear() {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	model.err = ""
	model.message = ""
}

// Notice displays a success message and clears any error
func (model *Model[T]) Notice(message string) {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	model.message = message
	model.err = ""
}

// Reject displays the error of a failed mutation and clears any success message.
// The value stays untouched.
func (model *Model[T]) Reject(err error) {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	model.err = err.Error()
	model.message = ""
}

// Invalidate discards every pending fetch
func (model *Model[T]) Invalidate() {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	model.generation++
	model.loading = false
}

// Snapshot returns the current state of the model
func (model *Model[T]) Snapshot() Snapshot[T] {
	model.mtx.Lock()
	defer model.mtx.Unlock()
	return Snapshot[T]{
		Value:      model.value,
		Loaded:     model.loaded,
		Loading:    model.loading,
		Error:      model.err,
		Message:    model.message,
		UpdatedAt:  model.updatedAt,
		Generation: model.generation,
	}
}
