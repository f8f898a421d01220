// Package taskqueue provides the serial executor a Port runs its binding
// calls, callbacks and event listeners on.
package taskqueue

import "sync"

// Queue runs posted tasks one at a time in FIFO order.
//
// A worker goroutine is started when a task is posted to an empty queue and
// exits once the queue drains again, so an idle Queue holds no goroutine and
// needs no shutdown. Post never runs the task on the calling goroutine.
type Queue struct {
	mu      sync.Mutex
	tasks   []func()
	running bool
	idle    chan struct{} // closed while no worker is running
}

// New returns an empty Queue.
func New() *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{idle: idle}
}

// Post appends task to the queue.
func (q *Queue) Post(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	go q.run()
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Idle returns a channel that is closed once the queue has no pending or
// running task. Tasks posted after the channel was returned are not waited
// for.
func (q *Queue) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idle
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
	}
}
