// Package batch splits ordered work items into fixed-size contiguous batches
// and flattens per-batch results back into a single ordered sequence.
//
// Batching lets a worker pool with a bounded number of concurrent workers
// process several items per invocation instead of one:
//
//	batches, err := batch.Partition(isbns, 10)
//	if err != nil {
//		return err
//	}
//	// ... dispatch batches, collect one []int per batch ...
//	counts, err := batch.Flatten(perBatch, len(isbns))
//
// Both functions are pure: they perform no I/O, hold no state and are safe to
// call concurrently. Partition never copies items; each batch is a sub-slice
// of the input with its capacity capped at its length.
//
// Invariants:
//   - Flatten(Partition(items, n)) reproduces items exactly.
//   - len(Partition(items, n)) == Count(len(items), n).
//   - Flatten fails with ErrResultCountMismatch rather than truncating or
//     padding when the result count differs from the item count.
package batch
