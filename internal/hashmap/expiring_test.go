package hashmap

import (
	"github.com/stretchr/testify/assert"
	"sync"
	"testing"
	"time"
)

func TestExpiringMap_Lookup(t *testing.T) {
	obj := NewExpiring[string, int](time.Hour)
	obj.Set("a", 1)

	val, ok := obj.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, val)
	assert.False(t, obj.Has("b"))
	assert.Zero(t, obj.Get("b"))
}

func TestExpiringMap_SweepAndTouch(t *testing.T) {
	obj := NewExpiring[string, int](100 * time.Millisecond)

	var mtx sync.Mutex
	evicted := make(map[string]int)
	obj.OnExpire = func(key string, value int) {
		mtx.Lock()
		defer mtx.Unlock()
		evicted[key] = value
	}

	obj.Set("idle", 1)
	obj.Set("busy", 2)
	time.Sleep(60 * time.Millisecond)
	val, ok := obj.Touch("busy")
	assert.True(t, ok)
	assert.Equal(t, 2, val)
	_, ok = obj.Touch("missing")
	assert.False(t, ok)
	time.Sleep(60 * time.Millisecond)

	assert.False(t, obj.Has("idle"))
	assert.True(t, obj.Has("busy"))
	assert.Equal(t, 1, obj.Sweep())
	assert.Equal(t, 1, obj.Size())

	mtx.Lock()
	defer mtx.Unlock()
	assert.Equal(t, map[string]int{"idle": 1}, evicted)
}

func TestExpiringMap_CleanupTask(t *testing.T) {
	obj := NewExpiring[string, int](10 * time.Millisecond)
	obj.Set("a", 1)
	obj.ScheduleCleanupTask(5 * time.Millisecond)
	defer obj.StopCleanupTask()

	assert.Eventually(t, func() bool {
		return obj.Size() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestExpiringMap_TouchDoesNotRevive(t *testing.T) {
	obj := NewExpiring[string, int](10 * time.Millisecond)
	obj.Set("a", 1)
	time.Sleep(30 * time.Millisecond)

	_, ok := obj.Touch("a")
	assert.False(t, ok)
	assert.Equal(t, 1, obj.Sweep())
}

func TestExpiringMap_Drain(t *testing.T) {
	obj := NewExpiring[string, int](time.Hour)
	obj.OnExpire = func(string, int) {
		t.Error("drained values must not be reported as expired")
	}
	obj.Set("a", 1)
	obj.Set("b", 2)

	assert.Equal(t, map[string]int{"a": 1, "b": 2}, obj.Drain())
	assert.Zero(t, obj.Size())
	assert.False(t, obj.Has("a"))
}

func TestExpiringMap_NoLifetime(t *testing.T) {
	obj := NewExpiring[string, int](0)
	obj.Set("a", 1)
	obj.Unset("b")

	assert.Zero(t, obj.Sweep())
	assert.Equal(t, 1, obj.Get("a"))
	obj.Unset("a")
	assert.False(t, obj.Has("a"))
}
