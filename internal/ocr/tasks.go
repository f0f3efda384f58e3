package ocr

import (
	"log/slog"
	"sync"
)

type task struct {
	name string
	fn   func() error
}

// TaskQueue runs best-effort side effects (usage accounting, cache
// writes) off the response path. A full queue drops the task with a
// warning instead of blocking the caller; a failed task is logged and
// swallowed.
type TaskQueue struct {
	ch   chan task
	wg   sync.WaitGroup
	once sync.Once
}

// NewTaskQueue starts a queue with the given buffer size.
func NewTaskQueue(size int) *TaskQueue {
	q := &TaskQueue{ch: make(chan task, size)}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *TaskQueue) run() {
	defer q.wg.Done()
	for t := range q.ch {
		if err := t.fn(); err != nil {
			slog.Warn("Background task failed", "task", t.name, "error", err)
		}
	}
}

// Submit enqueues a task without blocking. Returns false if the task
// was dropped because the queue is full.
func (q *TaskQueue) Submit(name string, fn func() error) bool {
	select {
	case q.ch <- task{name: name, fn: fn}:
		return true
	default:
		slog.Warn("Background task queue full, dropping task", "task", name)
		return false
	}
}

// Close stops accepting tasks and waits for the pending ones to finish.
func (q *TaskQueue) Close() {
	q.once.Do(func() { close(q.ch) })
	q.wg.Wait()
}
