// Package queue implements a bounded concurrency queue: a named limiter
// for long-running external operations (classification calls, image
// generation) with priority ordering and a per-task timeout. It exists
// to protect downstream rate limits, not for throughput.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrTimeout is returned when a submitted operation does not finish
// within its timeout. The operation itself may keep running in the
// background: a timeout means the caller gave up, not that the
// operation stopped.
var ErrTimeout = errors.New("operation timed out")

// Stats is a live snapshot of a queue instance.
type Stats struct {
	Completed int64
	Failed    int64
	TimedOut  int64
	Running   int
	Queued    int
	AvgWait   time.Duration
}

type pendingItem struct {
	priority   int
	seq        uint64
	start      chan struct{}
	enqueuedAt time.Time
	index      int
}

type pendingHeap []*pendingItem

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pendingHeap) Push(x any) {
	item := x.(*pendingItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Queue limits how many operations of one class run simultaneously.
// Distinct operation classes get distinct named instances.
type Queue[T any] struct {
	name          string
	maxConcurrent int
	logger        *slog.Logger

	mu        sync.Mutex
	running   int
	pending   pendingHeap
	seq       uint64
	completed int64
	failed    int64
	timedOut  int64
	waitTotal time.Duration
	waitCount int64
}

func New[T any](name string, maxConcurrent int, logger *slog.Logger) *Queue[T] {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue[T]{
		name:          name,
		maxConcurrent: maxConcurrent,
		logger:        logger.With("queue", name),
	}
}

// Submit runs op within the queue's concurrency bound. If a slot is
// free the operation starts immediately; otherwise it waits behind
// higher-priority submissions (ties keep submission order). A timeout
// greater than zero races the operation and returns ErrTimeout on
// expiry. Operation errors are propagated unchanged; the queue never
// retries.
func (q *Queue[T]) Submit(ctx context.Context, priority int, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T

	q.mu.Lock()
	if q.running < q.maxConcurrent {
		q.running++
		q.mu.Unlock()
	} else {
		item := &pendingItem{
			priority:   priority,
			seq:        q.seq,
			start:      make(chan struct{}),
			enqueuedAt: time.Now(),
		}
		q.seq++
		heap.Push(&q.pending, item)
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			q.mu.Lock()
			if item.index >= 0 {
				heap.Remove(&q.pending, item.index)
			}
			q.mu.Unlock()
			// The dispatcher may have granted a slot before we
			// removed ourselves; give it back.
			select {
			case <-item.start:
				q.release()
			default:
			}
			return zero, ctx.Err()
		case <-item.start:
			wait := time.Since(item.enqueuedAt)
			q.mu.Lock()
			q.waitTotal += wait
			q.waitCount++
			q.mu.Unlock()
		}
	}

	// The slot is freed on the first of: operation return, timeout.
	var once sync.Once
	release := func() { once.Do(q.release) }

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		v, err := op(ctx)
		done <- result{value: v, err: err}
		release()
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case res := <-done:
		q.mu.Lock()
		if res.err != nil {
			q.failed++
		} else {
			q.completed++
		}
		q.mu.Unlock()
		return res.value, res.err
	case <-timeoutC:
		q.mu.Lock()
		q.timedOut++
		q.mu.Unlock()
		release()
		q.logger.Warn("operation timed out", "timeout", timeout, "priority", priority)
		return zero, fmt.Errorf("%s: %w", q.name, ErrTimeout)
	case <-ctx.Done():
		release()
		return zero, ctx.Err()
	}
}

func (q *Queue[T]) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.running--
	for q.running < q.maxConcurrent && q.pending.Len() > 0 {
		item := heap.Pop(&q.pending).(*pendingItem)
		q.running++
		close(item.start)
	}
}

// Stats returns a live snapshot of the queue's counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{
		Completed: q.completed,
		Failed:    q.failed,
		TimedOut:  q.timedOut,
		Running:   q.running,
		Queued:    q.pending.Len(),
	}
	if q.waitCount > 0 {
		s.AvgWait = q.waitTotal / time.Duration(q.waitCount)
	}
	return s
}
