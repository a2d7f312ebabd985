package realtime

import (
	"sync"
	"time"
)

// TaskRunner owns named, cancellable timed tasks. Every timer in the realtime
// layer (heartbeat ticks, response timeouts, reconnect delays, processing
// retention) goes through a runner so teardown is structural: StopAll on
// shutdown leaves nothing behind.
type TaskRunner struct {
	mu      sync.Mutex
	tasks   map[string]*time.Timer
	stopped bool
}

func NewTaskRunner() *TaskRunner {
	return &TaskRunner{tasks: make(map[string]*time.Timer)}
}

// Schedule arms a named task. An existing task with the same name is
// cancelled first; the name therefore acts as a slot, not a queue.
func (r *TaskRunner) Schedule(name string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if existing, ok := r.tasks[name]; ok {
		existing.Stop()
	}
	r.tasks[name] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.tasks, name)
		r.mu.Unlock()
		fn()
	})
}

// Cancel stops a pending task. Returns false when nothing was armed.
func (r *TaskRunner) Cancel(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	timer, ok := r.tasks[name]
	if !ok {
		return false
	}
	timer.Stop()
	delete(r.tasks, name)
	return true
}

// Pending reports whether a task with the given name is armed.
func (r *TaskRunner) Pending(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[name]
	return ok
}

// StopAll cancels every outstanding task and rejects new ones.
func (r *TaskRunner) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for name, timer := range r.tasks {
		timer.Stop()
		delete(r.tasks, name)
	}
}

// Reset re-enables a runner after StopAll, for managers that disconnect and
// later reconnect within one process lifetime.
func (r *TaskRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = false
}
