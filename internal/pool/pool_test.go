package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_SubmitWait(t *testing.T) {
	p := New(Config{MaxWorkers: 2, QueueSize: 4})
	defer p.Close()

	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	wantErr := errors.New("boom")
	err = p.SubmitWait(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.Equal(t, wantErr, err)

	submitted, completed, failed := p.Stats()
	assert.Equal(t, int64(2), submitted)
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, int64(1), failed)
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	p := New(Config{MaxWorkers: 2, QueueSize: 16})
	defer p.Close()

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.SubmitWait(context.Background(), func(ctx context.Context) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2), "no more than MaxWorkers tasks should run at once")
}

func TestWorkerPool_ContextCancelWhileWaiting(t *testing.T) {
	p := New(Config{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()

	release := make(chan struct{})
	go func() {
		_ = p.SubmitWait(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.SubmitWait(ctx, func(ctx context.Context) error {
		<-release
		return nil
	})
	close(release)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPool_ClosedRejectsTasks(t *testing.T) {
	p := New(Config{MaxWorkers: 1, QueueSize: 1})
	p.Close()

	err := p.SubmitWait(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	p := New(Config{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()

	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		panic("oops")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}
