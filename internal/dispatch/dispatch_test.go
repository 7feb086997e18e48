package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/internal/pool"
)

// fakeGenerator 按提示词返回可预测的 URL，支持注入延迟与错误。
type fakeGenerator struct {
	delay   time.Duration
	failOn  string
	calls   atomic.Int32
	saw     chan string
	blockOn string
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	if f.saw != nil {
		f.saw <- prompt
	}
	if f.blockOn == prompt {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.failOn == prompt {
		return "", errors.New("generation failed: " + prompt)
	}
	return "/static/" + prompt + ".png", nil
}

func newTestDispatcher(g Generator) *Dispatcher {
	p := pool.New(pool.Config{MaxWorkers: 8, QueueSize: 32})
	return NewDispatcher(g, p, zap.NewNop())
}

func TestDispatcher_PreservesSubmissionOrder(t *testing.T) {
	gen := &fakeGenerator{}
	d := newTestDispatcher(gen)

	prompts := []string{"p0", "p1", "p2", "p3", "p4"}
	urls, err := d.Generate(context.Background(), prompts)
	require.NoError(t, err)
	require.Len(t, urls, len(prompts))

	for i, url := range urls {
		assert.Equal(t, fmt.Sprintf("/static/p%d.png", i), url)
	}
}

func TestDispatcher_SinglePrompt(t *testing.T) {
	gen := &fakeGenerator{}
	d := newTestDispatcher(gen)

	urls, err := d.Generate(context.Background(), []string{"scene"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/static/scene.png"}, urls)
}

func TestDispatcher_EmptyPrompts(t *testing.T) {
	d := newTestDispatcher(&fakeGenerator{})

	urls, err := d.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, urls)
}

func TestDispatcher_FailFastNoPartialResults(t *testing.T) {
	gen := &fakeGenerator{failOn: "bad"}
	d := newTestDispatcher(gen)

	urls, err := d.Generate(context.Background(), []string{"good", "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Nil(t, urls, "no partial list may be returned")
}

func TestDispatcher_CancelsSiblingsOnFirstFailure(t *testing.T) {
	// "slow" 阻塞直到 context 取消；"bad" 立即失败。
	// 失败必须取消 slow，否则 Generate 永远挂起。
	gen := &fakeGenerator{failOn: "bad", blockOn: "slow"}
	d := newTestDispatcher(gen)

	done := make(chan struct{})
	var err error
	go func() {
		_, err = d.Generate(context.Background(), []string{"slow", "bad"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not return; sibling cancellation not propagated")
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestDispatcher_RunsCallsConcurrently(t *testing.T) {
	gen := &fakeGenerator{delay: 50 * time.Millisecond}
	d := newTestDispatcher(gen)

	start := time.Now()
	_, err := d.Generate(context.Background(), []string{"a", "b", "c"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	// 串行执行需要 >=150ms；并发时应远低于此
	assert.Less(t, elapsed, 140*time.Millisecond, "calls should run in parallel")
}

func TestDispatcher_NilPoolFallsBackToDirectCall(t *testing.T) {
	gen := &fakeGenerator{}
	d := NewDispatcher(gen, nil, zap.NewNop())

	urls, err := d.Generate(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/static/a.png", "/static/b.png"}, urls)
}
