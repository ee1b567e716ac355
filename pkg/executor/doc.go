// Package executor is the boundary between a dispatch cycle and the
// parallel-execution backend that runs its units.
//
// The core needs only two capabilities from a backend: dispatch a sequence of
// units, receiving one future per unit, and collect those futures back into an
// ordered result sequence. Backend captures the submission side; Dispatch and
// Collect are generic over the unit and result types.
//
// Pool is an in-process Backend with a fixed number of workers, mirroring the
// concurrency ceiling of a hosted function-invocation service:
//
//	pool := executor.NewPool(executor.DefaultConfig())
//	defer pool.Close()
//
//	futures, err := executor.Dispatch(ctx, pool, batches, countBatch)
//	if err != nil {
//		return err
//	}
//	perBatch, err := executor.Collect(ctx, futures)
//
// Collection is all-or-nothing: if any unit fails, Collect still waits for
// every future and then returns a *RemoteExecutionError without results.
package executor
