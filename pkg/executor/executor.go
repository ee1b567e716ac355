package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Job is a unit of work handed to a Backend. The context passed to the job
// carries the unit's deadline and cancellation.
type Job func(ctx context.Context)

// Backend is a parallel-execution service with a bounded number of
// concurrent workers.
type Backend interface {
	// Submit queues job for execution. It may block until the backend accepts
	// the job and must return an error if the job will never run.
	Submit(ctx context.Context, job Job) error

	// MaxWorkers is the backend's concurrency ceiling.
	MaxWorkers() int
}

// Task transforms one dispatched unit into one result.
type Task[In, Out any] func(ctx context.Context, in In) (Out, error)

// Future holds the eventual result of one dispatched unit.
type Future[T any] struct {
	index int
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any](index int) *Future[T] {
	return &Future[T]{index: index, done: make(chan struct{})}
}

// resolve sets the outcome once; later calls are ignored.
func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Index is the position of the unit in dispatch order.
func (f *Future[T]) Index() int {
	return f.index
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type unitSizeKey struct{}

// WithUnitSize records on ctx how many items the unit submitted with it
// carries. Backends scale per-unit deadlines by it.
func WithUnitSize(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, unitSizeKey{}, n)
}

// UnitSize returns the item count recorded by WithUnitSize, or 1.
func UnitSize(ctx context.Context) int {
	if n, ok := ctx.Value(unitSizeKey{}).(int); ok && n > 1 {
		return n
	}
	return 1
}

// DispatchOption configures Dispatch.
type DispatchOption func(*dispatchOptions)

type dispatchOptions struct {
	sizeOf func(i int) int
}

// Sized reports the item count of unit i to the backend, see WithUnitSize.
func Sized(sizeOf func(i int) int) DispatchOption {
	return func(o *dispatchOptions) {
		o.sizeOf = sizeOf
	}
}

// Dispatch submits one job per unit to backend and returns one future per unit
// in the same order. Execution order across units is up to the backend.
//
// If a submission fails, that unit and every unit after it are resolved with
// the submission error, and a *RemoteExecutionError is returned alongside the
// futures.
func Dispatch[In, Out any](ctx context.Context, backend Backend, units []In, task Task[In, Out], opts ...DispatchOption) ([]*Future[Out], error) {
	var o dispatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if task == nil {
		return nil, errors.New("task cannot be nil")
	}

	futures := make([]*Future[Out], len(units))
	for i := range units {
		futures[i] = newFuture[Out](i)
	}

	for i, unit := range units {
		f := futures[i]
		job := func(jobCtx context.Context) {
			value, err := runTask(jobCtx, task, unit)
			if err != nil {
				unitsCompletedTotal.WithLabelValues("failure").Inc()
			} else {
				unitsCompletedTotal.WithLabelValues("success").Inc()
			}
			f.resolve(value, err)
		}

		submitCtx := ctx
		if o.sizeOf != nil {
			submitCtx = WithUnitSize(ctx, o.sizeOf(i))
		}

		if err := backend.Submit(submitCtx, job); err != nil {
			err = fmt.Errorf("submit unit %d: %w", i, err)
			var zero Out
			for _, rest := range futures[i:] {
				rest.resolve(zero, err)
			}
			return futures, &RemoteExecutionError{
				Unit:   i,
				Failed: len(units) - i,
				Total:  len(units),
				Err:    err,
			}
		}
		unitsDispatchedTotal.Inc()
	}

	return futures, nil
}

// runTask invokes task, turning a cancelled context or a panic into an error.
func runTask[In, Out any](ctx context.Context, task Task[In, Out], unit In) (out Out, err error) {
	if err := ctx.Err(); err != nil {
		return out, err
	}
	defer func() {
		if r := recover(); r != nil {
			var zero Out
			out, err = zero, &PanicError{Value: r}
		}
	}()
	return task(ctx, unit)
}

// Collect waits for every future and returns their values in input order.
//
// If any unit failed, Collect returns a *RemoteExecutionError describing the
// first failure and no results. If ctx ends before all futures resolve, the
// unresolved remainder is reported the same way.
func Collect[T any](ctx context.Context, futures []*Future[T]) ([]T, error) {
	results := make([]T, len(futures))
	var (
		firstErr  error
		firstUnit = -1
		failed    int
	)

	for i, f := range futures {
		select {
		case <-f.done:
		case <-ctx.Done():
			if firstErr == nil {
				firstErr, firstUnit = ctx.Err(), i
			}
			return nil, &RemoteExecutionError{
				Unit:   firstUnit,
				Failed: failed + len(futures) - i,
				Total:  len(futures),
				Err:    firstErr,
			}
		}

		if f.err != nil {
			failed++
			if firstErr == nil {
				firstErr, firstUnit = f.err, i
			}
			continue
		}
		results[i] = f.value
	}

	if firstErr != nil {
		return nil, &RemoteExecutionError{
			Unit:   firstUnit,
			Failed: failed,
			Total:  len(futures),
			Err:    firstErr,
		}
	}
	return results, nil
}
