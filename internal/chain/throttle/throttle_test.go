// =============================
// File: internal/chain/throttle/throttle_test.go
// =============================
package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueue_EnforcesMinDelay(t *testing.T) {
	q := New(50*time.Millisecond, 8, zap.NewNop())
	defer q.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		err := q.Submit(context.Background(), func(context.Context) error { return nil })
		require.NoError(t, err)
	}

	// Three items with a 50ms floor between them need at least 100ms total.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestQueue_PreservesSubmissionOrder(t *testing.T) {
	q := New(time.Millisecond, 16, zap.NewNop())
	defer q.Close()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		err := q.Submit(context.Background(), func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueue_SurvivesItemFailures(t *testing.T) {
	q := New(time.Millisecond, 8, zap.NewNop())
	defer q.Close()

	boom := errors.New("boom")
	err := q.Submit(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	// The consumer keeps draining after a failure.
	err = q.Submit(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)

	processed, failed := q.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.Equal(t, uint64(1), failed)
}

func TestQueue_SubmitHonorsContext(t *testing.T) {
	q := New(time.Millisecond, 1, zap.NewNop())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_CloseFailsQueuedJobs(t *testing.T) {
	q := New(time.Millisecond, 8, zap.NewNop())

	block := make(chan struct{})
	running := make(chan struct{})
	go func() {
		_ = q.Submit(context.Background(), func(context.Context) error {
			close(running)
			<-block
			return nil
		})
	}()
	<-running

	// Enqueue a second job behind the blocked one.
	queuedErr := make(chan error, 1)
	go func() {
		queuedErr <- q.Submit(context.Background(), func(context.Context) error { return nil })
	}()
	time.Sleep(20 * time.Millisecond)

	go q.Close()
	time.Sleep(20 * time.Millisecond)
	close(block)

	// The queued job's submitter unblocks with ErrQueueClosed, not by
	// waiting out its context.
	select {
	case err := <-queuedErr:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("queued submitter did not unblock on close")
	}
}

func TestQueue_ClosedRejectsSubmissions(t *testing.T) {
	q := New(time.Millisecond, 1, zap.NewNop())
	q.Close()

	err := q.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Close is idempotent.
	q.Close()
}
