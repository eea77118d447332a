package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legal_marketplace_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_ProcessesAllJobsBeforeShutdown(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	d := NewDispatcher(3, 10, func(ctx context.Context, job services.ProcessingJob) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		seen = append(seen, job.CaseID)
		mu.Unlock()
		return nil
	})
	d.Start(context.Background())

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, d.Enqueue(services.ProcessingJob{CaseID: id}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestDispatcher_FullQueue(t *testing.T) {
	d := NewDispatcher(1, 1, func(ctx context.Context, job services.ProcessingJob) error { return nil })

	require.NoError(t, d.Enqueue(services.ProcessingJob{CaseID: "a"}))
	assert.ErrorIs(t, d.Enqueue(services.ProcessingJob{CaseID: "b"}), ErrQueueFull)
}

func TestDispatcher_ClosedQueue(t *testing.T) {
	d := NewDispatcher(1, 1, func(ctx context.Context, job services.ProcessingJob) error { return nil })
	d.Start(context.Background())
	require.NoError(t, d.Shutdown(context.Background()))

	assert.ErrorIs(t, d.Enqueue(services.ProcessingJob{CaseID: "a"}), ErrQueueClosed)
	assert.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcher_SurvivesHandlerPanicAndError(t *testing.T) {
	done := make(chan string, 3)
	d := NewDispatcher(1, 5, func(ctx context.Context, job services.ProcessingJob) error {
		switch job.CaseID {
		case "panic":
			panic("boom")
		case "error":
			done <- job.CaseID
			return errors.New("failed")
		}
		done <- job.CaseID
		return nil
	})
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(services.ProcessingJob{CaseID: "panic"}))
	require.NoError(t, d.Enqueue(services.ProcessingJob{CaseID: "error"}))
	require.NoError(t, d.Enqueue(services.ProcessingJob{CaseID: "ok"}))

	require.NoError(t, d.Shutdown(context.Background()))
	close(done)

	var got []string
	for id := range done {
		got = append(got, id)
	}
	assert.Equal(t, []string{"error", "ok"}, got)
}

func TestDispatcher_ShutdownTimeoutCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	d := NewDispatcher(1, 1, func(ctx context.Context, job services.ProcessingJob) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	d.Start(context.Background())
	require.NoError(t, d.Enqueue(services.ProcessingJob{CaseID: "slow"}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running job was not cancelled")
	}
}

func TestDispatcher_ShutdownWithoutStart(t *testing.T) {
	d := NewDispatcher(2, 2, func(ctx context.Context, job services.ProcessingJob) error { return nil })
	assert.NoError(t, d.Shutdown(context.Background()))
}
