// =============================
// File: internal/chain/throttle/throttle.go
// =============================
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Queue serializes outbound read calls behind a bounded work queue drained
// by a single consumer goroutine, with a fixed minimum inter-request delay.
// Item failures are returned to their submitter and logged; the consumer
// keeps draining. Write calls (transaction submission) must not go through
// this queue.
type Queue struct {
	jobs    chan job
	limiter *rate.Limiter
	logger  *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
	drained   chan struct{}

	mu        sync.Mutex
	processed uint64
	failed    uint64
}

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

var ErrQueueClosed = errors.New("throttle queue closed")

// New starts the queue's consumer. minDelay is the pause enforced between
// consecutive items; capacity bounds the number of waiting items.
func New(minDelay time.Duration, capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	q := &Queue{
		jobs:    make(chan job, capacity),
		limiter: rate.NewLimiter(rate.Every(minDelay), 1),
		logger:  logger.Named("throttle"),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	go q.consume()
	return q
}

// Submit enqueues fn and blocks until it has run or ctx is done. The
// returned error is fn's own error; a full queue blocks the submitter
// rather than dropping the item.
func (q *Queue) Submit(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- j:
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consume drains one item, waits out the inter-request delay, and moves on.
// A failing item never stops the queue.
func (q *Queue) consume() {
	defer close(q.drained)
	for {
		select {
		case <-q.closed:
			q.failQueued()
			return
		case j := <-q.jobs:
			select {
			case <-q.closed:
				j.result <- ErrQueueClosed
				continue
			default:
			}
			if err := q.limiter.Wait(j.ctx); err != nil {
				j.result <- err
				continue
			}
			if err := j.ctx.Err(); err != nil {
				j.result <- err
				continue
			}

			err := j.fn(j.ctx)
			if err != nil {
				q.logger.Debug("throttled call failed", zap.Error(err))
				q.mu.Lock()
				q.failed++
				q.mu.Unlock()
			} else {
				q.mu.Lock()
				q.processed++
				q.mu.Unlock()
			}
			j.result <- err
		}
	}
}

// Stats returns the number of completed and failed items so far.
func (q *Queue) Stats() (processed, failed uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processed, q.failed
}

// failQueued hands ErrQueueClosed to every job still sitting in the queue
// so their submitters unblock without waiting out their contexts.
func (q *Queue) failQueued() {
	for {
		select {
		case j := <-q.jobs:
			j.result <- ErrQueueClosed
		default:
			return
		}
	}
}

// Close stops the consumer. Jobs still waiting in the queue are failed with
// ErrQueueClosed; their submitters do not block on their own contexts.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
		<-q.drained
	})
}
