package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesTasks(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	p := NewPool("test", func(ctx context.Context, task Task[string]) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, Config[string]{Workers: 2})
	p.Start(context.Background())
	defer p.Shutdown(context.Background()) //nolint:errcheck

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(Task[string]{ID: "t", Kind: "noop", Payload: "x"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for task")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
}

func TestPoolRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan Task[int], 1)
	p := NewPool("retry", func(ctx context.Context, task Task[int]) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, Config[int]{
		Retries: 2,
		Backoff: time.Millisecond,
		OnGiveUp: func(task Task[int], err error) {
			gaveUp <- task
		},
	})
	p.Start(context.Background())
	defer p.Shutdown(context.Background()) //nolint:errcheck

	require.NoError(t, p.Submit(Task[int]{ID: "t1", Payload: 7}))
	select {
	case task := <-gaveUp:
		assert.Equal(t, "t1", task.ID)
		assert.Equal(t, 3, task.Attempt)
		assert.Equal(t, 7, task.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("task was never given up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSubmitBeforeStartAndAfterShutdown(t *testing.T) {
	p := NewPool("idle", func(ctx context.Context, task Task[string]) error { return nil }, Config[string]{})
	assert.ErrorIs(t, p.Submit(Task[string]{ID: "x"}), ErrClosed)

	p.Start(context.Background())
	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Submit(Task[string]{ID: "y"}), ErrClosed)
}

func TestSubmitFullBuffer(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := NewPool("full", func(ctx context.Context, task Task[string]) error {
		started <- struct{}{}
		<-release
		return nil
	}, Config[string]{Workers: 1, Buffer: 1})
	p.Start(context.Background())

	require.NoError(t, p.Submit(Task[string]{ID: "busy"}))
	<-started
	require.NoError(t, p.Submit(Task[string]{ID: "buffered"}))
	assert.ErrorIs(t, p.Submit(Task[string]{ID: "overflow"}), ErrFull)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdownDrainsBufferedTasks(t *testing.T) {
	var handled int32
	p := NewPool("drain", func(ctx context.Context, task Task[string]) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&handled, 1)
		return nil
	}, Config[string]{Workers: 1, Buffer: 8})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Task[string]{ID: "t"}))
	}
	cancel()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), atomic.LoadInt32(&handled))
}

func TestShutdownTimeoutCancelsHandlers(t *testing.T) {
	p := NewPool("slow", func(ctx context.Context, task Task[string]) error {
		<-ctx.Done()
		return ctx.Err()
	}, Config[string]{Workers: 1})
	p.Start(context.Background())
	require.NoError(t, p.Submit(Task[string]{ID: "stuck"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
