// Package queue serializes calls into the transcription service behind a
// fixed concurrency ceiling. One Queue is built at startup and shared by
// every batch in the process.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned by Submit when MaxPending tasks are waiting.
	ErrQueueFull = errors.New("transcription queue is full")
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("transcription queue is closed")
)

// WorkFunc transcribes the payload at payloadRef.
type WorkFunc func(ctx context.Context, payloadRef string) (string, error)

// Options configures a Queue.
type Options struct {
	// Concurrency is the number of tasks allowed to run at once. Defaults to 1.
	Concurrency int
	// MaxPending bounds the backlog; 0 means unbounded.
	MaxPending int
	// TaskTimeout is the deadline handed to each WorkFunc; 0 means none.
	TaskTimeout time.Duration
}

type task struct {
	payloadRef string
	work       WorkFunc
	handle     *Handle
}

// Queue is a FIFO scheduler with a bounded number of active tasks.
type Queue struct {
	mu          sync.Mutex
	pending     []*task
	active      int
	concurrency int
	maxPending  int
	taskTimeout time.Duration
	closed      bool
}

// New creates a queue
func New(opts Options) *Queue {
	queueMetrics.init()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	maxPending := opts.MaxPending
	if maxPending < 0 {
		maxPending = 0
	}

	return &Queue{
		concurrency: concurrency,
		maxPending:  maxPending,
		taskTimeout: opts.TaskTimeout,
	}
}

// Submit appends a task to the pending list and returns its handle. Once
// submitted a task always runs; it cannot be withdrawn.
func (q *Queue) Submit(payloadRef string, work WorkFunc) (*Handle, error) {
	if work == nil {
		return nil, errors.New("queue: nil work function")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		queueMetrics.rejected.WithLabelValues("closed").Inc()
		return nil, ErrQueueClosed
	}
	if q.maxPending > 0 && len(q.pending) >= q.maxPending {
		queueMetrics.rejected.WithLabelValues("full").Inc()
		return nil, ErrQueueFull
	}

	h := newHandle()
	q.pending = append(q.pending, &task{
		payloadRef: payloadRef,
		work:       work,
		handle:     h,
	})
	q.drainLocked()

	return h, nil
}

// PendingCount returns the number of tasks waiting for a slot
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ActiveCount returns the number of tasks currently running
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Concurrency returns the ceiling on active tasks
func (q *Queue) Concurrency() int {
	return q.concurrency
}

// Close stops accepting submissions. Tasks already submitted still run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// drainLocked admits pending tasks in arrival order while slots are free.
// Caller must hold q.mu.
func (q *Queue) drainLocked() {
	for q.active < q.concurrency && len(q.pending) > 0 {
		t := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.active++
		go q.run(t)
	}
	queueMetrics.observe(len(q.pending), q.active)
}

func (q *Queue) run(t *task) {
	result, err := q.execute(t)

	q.mu.Lock()
	q.active--
	q.drainLocked()
	q.mu.Unlock()

	t.handle.resolve(result, err)
}

func (q *Queue) execute(t *task) (result string, err error) {
	ctx := context.Background()
	if q.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = fmt.Errorf("transcription task panicked: %v", r)
		}
		label := "ok"
		if err != nil {
			label = "error"
		}
		queueMetrics.duration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	return t.work(ctx, t.payloadRef)
}
