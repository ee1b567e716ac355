// Package fanout runs one dispatch cycle: it takes an ordered list of work
// items and returns one result per item, in the same order.
//
// A cycle runs in one of four modes:
//
//   - serial: every item is transformed in the caller's goroutine.
//   - parallel: one executor unit per item.
//   - batched: items are partitioned into fixed-size batches, one unit per
//     batch, and the per-batch results are flattened.
//   - auto: parallel while the item count fits under the executor's worker
//     ceiling, batched (with batches sized to fit the ceiling) otherwise.
//
// A cycle either returns the full result sequence or an error; partial
// results are never returned. Typical use:
//
//	runner, err := fanout.NewRunner(pool,
//		wordcount.Item(client, wordcount.RecoverMissing),
//		wordcount.Batch(client, wordcount.RecoverMissing),
//		fanout.Config{Mode: fanout.ModeAuto, BatchSize: 10})
//	counts, err := runner.Run(ctx, isbns)
package fanout
