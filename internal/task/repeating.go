package task

import (
	"github.com/rs/zerolog/log"
	"sync"
	"time"
)

// RepeatingTask executes a task in a specific interval asynchronously.
// A panicking execution is logged and does not end the repetition.
type RepeatingTask struct {
	task     func()
	interval time.Duration

	mtx  sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewRepeating creates a new repeating asynchronous task
func NewRepeating(task func(), interval time.Duration) *RepeatingTask {
	return &RepeatingTask{
		task:     task,
		interval: interval,
	}
}

// Start starts the repeating task.
// If the task is already running, this is a no-op.
func (task *RepeatingTask) Start() {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	if task.stop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(task.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				task.run()
			case <-stop:
				return
			}
		}
	}()
	task.stop = stop
	task.done = done
}

// Stop stops the repeating task and waits for a running execution to finish.
// If the task is not running, this is a no-op.
// forceExec defines whether to execute the task one last time just before the task shuts down.
func (task *RepeatingTask) Stop(forceExec bool) {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	if task.stop == nil {
		return
	}
	close(task.stop)
	<-task.done
	task.stop = nil
	task.done = nil
	if forceExec {
		task.run()
	}
}

func (task *RepeatingTask) run() {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().Interface("panic", recovered).Msg("a repeating task panicked")
		}
	}()
	task.task()
}
