package hashmap

import (
	"github.com/skybi/reservation-console/internal/task"
	"sync"
	"time"
)

type expiringEntry[T any] struct {
	raw     T
	touched time.Time
}

// ExpiringMap is a thread safe map whose values expire once they were neither set nor touched for the map's lifetime
type ExpiringMap[K comparable, V any] struct {
	mtx         sync.Mutex
	underlying  map[K]*expiringEntry[V]
	lifetime    time.Duration
	cleanupTask *task.RepeatingTask

	// OnExpire is called for every value removed by Sweep, outside the map's lock
	OnExpire func(key K, value V)
}

// NewExpiring creates a new expiring map whose values exist for a specific lifetime.
// Expired values are hidden right away but not removed before Sweep runs, i.e. through ScheduleCleanupTask.
// A non-positive lifetime disables expiration.
func NewExpiring[K comparable, V any](lifetime time.Duration) *ExpiringMap[K, V] {
	return &ExpiringMap[K, V]{
		underlying: make(map[K]*expiringEntry[V]),
		lifetime:   lifetime,
	}
}

// ScheduleCleanupTask schedules the task that sweeps expired values in a specific interval.
// StopCleanupTask has to be called as soon as the map is no longer needed.
func (obj *ExpiringMap[K, V]) ScheduleCleanupTask(tick time.Duration) {
	if obj.cleanupTask != nil {
		return
	}
	obj.cleanupTask = task.NewRepeating(func() {
		obj.Sweep()
	}, tick)
	obj.cleanupTask.Start()
}

// StopCleanupTask stops the cleanup task after sweeping one last time
func (obj *ExpiringMap[K, V]) StopCleanupTask() {
	if obj.cleanupTask == nil {
		return
	}
	obj.cleanupTask.Stop(true)
	obj.cleanupTask = nil
}

// Sweep removes all expired values and returns how many were removed
func (obj *ExpiringMap[K, V]) Sweep() int {
	expired := make(map[K]V)
	obj.mtx.Lock()
	for key, entry := range obj.underlying {
		if obj.expired(entry) {
			expired[key] = entry.raw
			delete(obj.underlying, key)
		}
	}
	obj.mtx.Unlock()

	if obj.OnExpire != nil {
		for key, val := range expired {
			obj.OnExpire(key, val)
		}
	}
	return len(expired)
}

// Drain removes and returns every value, expired or not; OnExpire is not called
func (obj *ExpiringMap[K, V]) Drain() map[K]V {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	drained := make(map[K]V, len(obj.underlying))
	for key, entry := range obj.underlying {
		drained[key] = entry.raw
	}
	obj.underlying = make(map[K]*expiringEntry[V])
	return drained
}

// Touch looks up the value assigned to the given key and resets its lifetime.
// Expired values are neither returned nor revived.
func (obj *ExpiringMap[K, V]) Touch(key K) (V, bool) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	entry, ok := obj.underlying[key]
	if !ok || obj.expired(entry) {
		var zero V
		return zero, false
	}
	obj.underlying[key] = &expiringEntry[V]{
		raw:     entry.raw,
		touched: time.Now(),
	}
	return entry.raw, true
}

// Size returns the amount of stored key-value pairs, including expired ones not swept yet
func (obj *ExpiringMap[K, V]) Size() int {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	return len(obj.underlying)
}

// Has returns whether a non-expired value is assigned to the given key
func (obj *ExpiringMap[K, V]) Has(key K) bool {
	_, ok := obj.Lookup(key)
	return ok
}

// Lookup returns the value assigned to the given key and whether it exists and did not expire yet
func (obj *ExpiringMap[K, V]) Lookup(key K) (V, bool) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	entry, ok := obj.underlying[key]
	if !ok || obj.expired(entry) {
		var zero V
		return zero, false
	}
	return entry.raw, true
}

// Get returns the value assigned to the given key or the type's zero value
func (obj *ExpiringMap[K, V]) Get(key K) V {
	val, _ := obj.Lookup(key)
	return val
}

func (obj *ExpiringMap[K, V]) expired(entry *expiringEntry[V]) bool {
	return obj.lifetime > 0 && time.Since(entry.touched) > obj.lifetime
}

// Set sets a key-value pair and starts its lifetime
func (obj *ExpiringMap[K, V]) Set(key K, value V) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	obj.underlying[key] = &expiringEntry[V]{
		raw:     value,
		touched: time.Now(),
	}
}

// Unset deletes the value assigned to given key
func (obj *ExpiringMap[K, V]) Unset(key K) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	delete(obj.underlying, key)
}
