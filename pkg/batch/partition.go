package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a batch size is not a positive integer.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResultCountMismatch is returned when flattened results do not line up
	// with the number of work items that were dispatched.
	ErrResultCountMismatch = errors.New("result count mismatch")
)

// Partition splits items into contiguous, order-preserving batches of at most
// size elements. Every batch holds exactly size items except possibly the last.
//
// An empty input yields zero batches. A size larger than len(items) yields a
// single batch. A size <= 0 fails with ErrInvalidArgument for any input.
func Partition[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be >= 1 (got %d)", ErrInvalidArgument, size)
	}
	if len(items) == 0 {
		return [][]T{}, nil
	}

	batches := make([][]T, 0, Count(len(items), size))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		// Full slice expression so appending to one batch cannot clobber the next.
		batches = append(batches, items[start:end:end])
	}
	return batches, nil
}

// Count returns the number of batches Partition produces for n items,
// i.e. ceil(n / size). It returns 0 when n <= 0 or size <= 0.
func Count(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Flatten concatenates per-batch results in order. want is the number of
// work items originally partitioned; if the concatenated length differs,
// Flatten returns ErrResultCountMismatch and no partial sequence.
func Flatten[R any](results [][]R, want int) ([]R, error) {
	total := 0
	for _, r := range results {
		total += len(r)
	}
	if total != want {
		return nil, fmt.Errorf("%w: got %d results for %d items", ErrResultCountMismatch, total, want)
	}

	flat := make([]R, 0, total)
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat, nil
}
