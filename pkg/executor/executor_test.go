package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejectingBackend accepts the first n jobs and rejects the rest.
type rejectingBackend struct {
	accept int
	err    error
	jobs   []Job
}

func (b *rejectingBackend) Submit(ctx context.Context, job Job) error {
	if len(b.jobs) >= b.accept {
		return b.err
	}
	b.jobs = append(b.jobs, job)
	return nil
}

func (b *rejectingBackend) MaxWorkers() int { return 1 }

func square(_ context.Context, n int) (int, error) {
	return n * n, nil
}

func TestDispatchCollect_OrderPreserved(t *testing.T) {
	pool := NewPool(Config{MaxWorkers: 4, BufferSize: 8, UnitTimeout: time.Second})
	defer pool.Close()

	units := make([]int, 50)
	for i := range units {
		units[i] = i
	}

	// Later units finish first so completion order differs from dispatch order.
	task := func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(50-n) * 100 * time.Microsecond)
		return n * 10, nil
	}

	ctx := context.Background()
	futures, err := Dispatch(ctx, pool, units, task)
	require.NoError(t, err)
	require.Len(t, futures, len(units))

	results, err := Collect(ctx, futures)
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, i*10, r)
		assert.Equal(t, i, futures[i].Index())
	}
}

func TestDispatchCollect_Empty(t *testing.T) {
	pool := NewPool(DefaultConfig())
	defer pool.Close()

	futures, err := Dispatch(context.Background(), pool, []int{}, square)
	require.NoError(t, err)
	assert.Empty(t, futures)

	results, err := Collect(context.Background(), futures)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCollect_FailureAbortsCycle(t *testing.T) {
	pool := NewPool(Config{MaxWorkers: 3})
	defer pool.Close()

	boom := errors.New("boom")
	var ran atomic.Int32
	task := func(_ context.Context, n int) (int, error) {
		ran.Add(1)
		if n == 2 || n == 4 {
			return 0, boom
		}
		return n, nil
	}

	ctx := context.Background()
	futures, err := Dispatch(ctx, pool, []int{0, 1, 2, 3, 4, 5}, task)
	require.NoError(t, err)

	results, err := Collect(ctx, futures)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrRemoteExecution)
	assert.ErrorIs(t, err, boom)

	var remoteErr *RemoteExecutionError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, 2, remoteErr.Unit)
	assert.Equal(t, 2, remoteErr.Failed)
	assert.Equal(t, 6, remoteErr.Total)

	// Every unit still ran; failure does not cancel siblings.
	assert.Equal(t, int32(6), ran.Load())
}

func TestDispatch_TaskPanicBecomesError(t *testing.T) {
	pool := NewPool(Config{MaxWorkers: 2})
	defer pool.Close()

	task := func(_ context.Context, n int) (int, error) {
		if n == 1 {
			panic("bad unit")
		}
		return n, nil
	}

	ctx := context.Background()
	futures, err := Dispatch(ctx, pool, []int{0, 1, 2}, task)
	require.NoError(t, err)

	_, err = futures[1].Wait(ctx)
	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "bad unit", panicErr.Value)

	v, err := futures[2].Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestDispatch_SubmitFailureResolvesRemainder(t *testing.T) {
	rejected := errors.New("backend full")
	backend := &rejectingBackend{accept: 2, err: rejected}

	ctx := context.Background()
	futures, err := Dispatch(ctx, backend, []int{1, 2, 3, 4}, square)
	require.Error(t, err)
	assert.ErrorIs(t, err, rejected)
	assert.ErrorIs(t, err, ErrRemoteExecution)
	require.Len(t, futures, 4)

	var submitErr *RemoteExecutionError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, 2, submitErr.Unit)
	assert.Equal(t, 2, submitErr.Failed)
	assert.Equal(t, 4, submitErr.Total)

	for _, job := range backend.jobs {
		job(ctx)
	}

	_, err = Collect(ctx, futures)
	var remoteErr *RemoteExecutionError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, 2, remoteErr.Unit)
	assert.Equal(t, 2, remoteErr.Failed)
}

func TestDispatch_NilArguments(t *testing.T) {
	_, err := Dispatch[int, int](context.Background(), nil, []int{1}, square)
	assert.Error(t, err)

	pool := NewPool(DefaultConfig())
	defer pool.Close()
	_, err = Dispatch[int, int](context.Background(), pool, []int{1}, nil)
	assert.Error(t, err)
}

func TestCollect_ContextCancelled(t *testing.T) {
	pool := NewPool(Config{MaxWorkers: 1})
	defer pool.Close()

	release := make(chan struct{})
	task := func(ctx context.Context, n int) (int, error) {
		<-release
		return n, nil
	}

	futures, err := Dispatch(context.Background(), pool, []int{1, 2}, task)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, err := Collect(ctx, futures)
	close(release)

	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrRemoteExecution)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_ResolveOnce(t *testing.T) {
	f := newFuture[int](0)
	f.resolve(1, nil)
	f.resolve(2, errors.New("ignored"))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestRemoteExecutionError_Message(t *testing.T) {
	err := &RemoteExecutionError{Unit: 3, Failed: 2, Total: 10, Err: errors.New("timeout")}
	assert.Equal(t, "remote execution failed: 2/10 units failed (first: unit 3): timeout", err.Error())
	assert.True(t, errors.Is(err, ErrRemoteExecution))
}

func TestDispatch_ClosedPool(t *testing.T) {
	pool := NewPool(Config{MaxWorkers: 2})
	require.NoError(t, pool.Close())

	futures, err := Dispatch(context.Background(), pool, []int{1, 2, 3}, square)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteExecution)
	assert.ErrorIs(t, err, ErrPoolClosed)

	for _, f := range futures {
		_, ferr := f.Wait(context.Background())
		assert.ErrorIs(t, ferr, ErrPoolClosed)
	}
}

func TestUnitSize(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 1, UnitSize(ctx))
	assert.Equal(t, 1, UnitSize(WithUnitSize(ctx, 0)))
	assert.Equal(t, 1, UnitSize(WithUnitSize(ctx, -3)))
	assert.Equal(t, 7, UnitSize(WithUnitSize(ctx, 7)))
}
