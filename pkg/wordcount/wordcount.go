// Package wordcount turns work-item identifiers into description word counts.
//
// Item and Batch build executor tasks with the same per-item logic, so a
// dispatch cycle can submit either one unit per ISBN or one unit per batch.
//
// Missing descriptions are handled by an explicit Policy rather than a
// swallowed error: under RecoverMissing (the default) a lookup failing with
// books.ErrMissingField counts as 0 words, and any other failure is reported.
package wordcount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/book-fanout/pkg/books"
	"github.com/Sternrassler/book-fanout/pkg/executor"
	"github.com/rs/zerolog/log"
)

// DescriptionSource fetches the description text for one identifier.
// *books.Client implements it.
type DescriptionSource interface {
	Description(ctx context.Context, id string) (string, error)
}

// Policy selects which per-item failures are replaced by a count of 0.
type Policy int

const (
	// RecoverMissing maps books.ErrMissingField to 0 and reports every other error.
	RecoverMissing Policy = iota

	// RecoverAll maps every per-item error to 0 and logs it.
	RecoverAll
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case RecoverMissing:
		return "recover-missing"
	case RecoverAll:
		return "recover-all"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name as produced by String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recover-missing":
		return RecoverMissing, nil
	case "recover-all":
		return RecoverAll, nil
	default:
		return 0, fmt.Errorf("unknown recovery policy %q", s)
	}
}

// ItemError attributes a per-item failure to its identifier.
type ItemError struct {
	ID  string
	Err error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Count returns the number of whitespace-separated words in text.
func Count(text string) int {
	return len(strings.Fields(text))
}

// countOne applies the per-item logic and policy to a single identifier.
func countOne(ctx context.Context, src DescriptionSource, policy Policy, id string) (int, error) {
	text, err := src.Description(ctx, id)
	if err == nil {
		return Count(text), nil
	}

	if errors.Is(err, books.ErrMissingField) {
		return 0, nil
	}
	// A cancelled cycle is never turned into a zero.
	if ctx.Err() != nil {
		return 0, &ItemError{ID: id, Err: err}
	}
	if policy == RecoverAll {
		log.Warn().
			Str("component", "wordcount").
			Str("id", id).
			Err(err).
			Msg("Item lookup failed - counting as 0")
		return 0, nil
	}
	return 0, &ItemError{ID: id, Err: err}
}

// Item returns the single-item transform: one identifier in, one count out.
func Item(src DescriptionSource, policy Policy) executor.Task[string, int] {
	return func(ctx context.Context, id string) (int, error) {
		return countOne(ctx, src, policy, id)
	}
}

// Batch returns the batch transform: one count per identifier, in order.
//
// Every identifier in the batch is processed even after a sibling fails.
// Failures the policy does not recover are joined and returned after the
// loop, in which case no counts are returned.
func Batch(src DescriptionSource, policy Policy) executor.Task[[]string, []int] {
	return func(ctx context.Context, ids []string) ([]int, error) {
		counts := make([]int, len(ids))
		var errs []error
		for i, id := range ids {
			n, err := countOne(ctx, src, policy, id)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			counts[i] = n
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return counts, nil
	}
}
