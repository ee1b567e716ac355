package fanout

import (
	"context"
	"fmt"
	"slices"
)

// Compare runs one cycle per mode over the same items, in the order given,
// and returns every cycle including failed ones. With no modes it compares
// serial, parallel and batched dispatch.
//
// Cycles are independent: a failed cycle does not affect the others.
func (r *Runner) Compare(ctx context.Context, items []string, modes ...Mode) []Cycle {
	if len(modes) == 0 {
		modes = []Mode{ModeSerial, ModeParallel, ModeBatched}
	}

	cycles := make([]Cycle, 0, len(modes))
	for _, mode := range modes {
		if ctx.Err() != nil {
			cycles = append(cycles, Cycle{Mode: mode, Items: len(items), Err: ctx.Err()})
			continue
		}
		cycles = append(cycles, r.RunMode(ctx, mode, items))
	}
	return cycles
}

// Consistent reports whether every successful cycle produced the same
// results. It returns an error naming the first disagreeing mode.
func Consistent(cycles []Cycle) error {
	var ref *Cycle
	for i := range cycles {
		c := &cycles[i]
		if c.Err != nil {
			continue
		}
		if ref == nil {
			ref = c
			continue
		}
		if !slices.Equal(ref.Results, c.Results) {
			return fmt.Errorf("%s results differ from %s results", c.Mode, ref.Mode)
		}
	}
	return nil
}
