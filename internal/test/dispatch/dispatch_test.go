package dispatch_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/dispatch"
)

func TestDispatcher_RunsTasks(t *testing.T) {
	d := dispatch.New(2, 8, zap.NewNop())
	d.Start()

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := d.Enqueue(func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		})
		require.NoError(t, err)
	}

	wg.Wait()
	d.Stop()
	assert.Equal(t, int64(5), ran.Load())
}

func TestDispatcher_QueueFull(t *testing.T) {
	// No workers started: everything stays queued
	d := dispatch.New(1, 2, zap.NewNop())

	noop := func(ctx context.Context) {}
	require.NoError(t, d.Enqueue(noop))
	require.NoError(t, d.Enqueue(noop))

	err := d.Enqueue(noop)
	assert.ErrorIs(t, err, dispatch.ErrQueueFull)
}

func TestDispatcher_StopDrainsQueuedTasks(t *testing.T) {
	d := dispatch.New(1, 8, zap.NewNop())

	var ran atomic.Int64
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Enqueue(func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}))
	}

	d.Start()
	d.Stop()

	assert.Equal(t, int64(4), ran.Load(), "queued tasks finish before Stop returns")
}

func TestDispatcher_TaskContextCancelledAfterStop(t *testing.T) {
	d := dispatch.New(1, 1, zap.NewNop())
	d.Start()

	taskCtx := make(chan context.Context, 1)
	require.NoError(t, d.Enqueue(func(ctx context.Context) {
		taskCtx <- ctx
	}))

	ctx := <-taskCtx
	assert.NoError(t, ctx.Err(), "context live while dispatcher runs")

	d.Stop()
	assert.Error(t, ctx.Err(), "context cancelled once dispatcher stops")
}
