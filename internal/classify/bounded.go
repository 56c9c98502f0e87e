package classify

import (
	"context"
	"time"

	"topicscan/internal/queue"
)

// Bounded wraps an external classifier so that every call passes through a
// shared concurrency queue. Calls beyond the queue's worker limit wait their
// turn; a call that outlives its per-task timeout returns queue.ErrTimeout,
// which the ensemble treats like any failed call: the item degrades to the
// default category with the low-confidence flag.
type Bounded struct {
	inner    ExternalClassifier
	queue    *queue.Queue[string]
	priority int
	timeout  time.Duration
}

func NewBounded(inner ExternalClassifier, q *queue.Queue[string], priority int, timeout time.Duration) *Bounded {
	return &Bounded{inner: inner, queue: q, priority: priority, timeout: timeout}
}

func (b *Bounded) ClassifyText(ctx context.Context, title, summary string) (string, error) {
	return b.queue.Submit(ctx, b.priority, b.timeout, func(ctx context.Context) (string, error) {
		return b.inner.ClassifyText(ctx, title, summary)
	})
}
