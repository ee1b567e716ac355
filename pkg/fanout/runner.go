package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/book-fanout/pkg/batch"
	"github.com/Sternrassler/book-fanout/pkg/executor"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds runner configuration.
type Config struct {
	// Mode is the default dispatch mode used by Run.
	Mode Mode
	// BatchSize is the number of items per unit in batched mode, and the
	// minimum batch size in auto mode.
	BatchSize int
}

// DefaultConfig returns auto mode with batches of 10.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeAuto,
		BatchSize: 10,
	}
}

// Runner executes dispatch cycles against a backend.
type Runner struct {
	backend   executor.Backend
	itemTask  executor.Task[string, int]
	batchTask executor.Task[[]string, []int]
	config    Config
	logger    zerolog.Logger
}

// Cycle describes one completed or failed dispatch cycle.
type Cycle struct {
	RunID     string
	Mode      Mode
	Items     int
	Units     int
	BatchSize int
	Duration  time.Duration
	Results   []int
	Err       error
}

// NewRunner validates the configuration and returns a runner.
// backend may be nil only when every cycle will run serially.
func NewRunner(
	backend executor.Backend,
	itemTask executor.Task[string, int],
	batchTask executor.Task[[]string, []int],
	config Config,
) (*Runner, error) {
	if _, err := ParseMode(string(config.Mode)); err != nil {
		return nil, err
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be >= 1 (got %d)", batch.ErrInvalidArgument, config.BatchSize)
	}
	if itemTask == nil {
		return nil, errors.New("item task cannot be nil")
	}
	if batchTask == nil && (config.Mode == ModeBatched || config.Mode == ModeAuto) {
		return nil, fmt.Errorf("batch task is required for %s mode", config.Mode)
	}
	if backend == nil && config.Mode != ModeSerial {
		return nil, fmt.Errorf("backend is required for %s mode", config.Mode)
	}

	return &Runner{
		backend:   backend,
		itemTask:  itemTask,
		batchTask: batchTask,
		config:    config,
		logger:    log.With().Str("component", "fanout").Logger(),
	}, nil
}

// Run executes one cycle in the configured mode and returns one result per
// item, in item order.
func (r *Runner) Run(ctx context.Context, items []string) ([]int, error) {
	c := r.RunMode(ctx, r.config.Mode, items)
	return c.Results, c.Err
}

// RunMode executes one cycle in mode. On failure Cycle.Err is set and
// Cycle.Results is nil.
func (r *Runner) RunMode(ctx context.Context, mode Mode, items []string) Cycle {
	c := Cycle{
		RunID: ulid.Make().String(),
		Mode:  mode,
		Items: len(items),
	}
	logger := r.logger.With().
		Str("run_id", c.RunID).
		Str("mode", string(mode)).
		Int("items", len(items)).
		Logger()

	start := time.Now()
	logger.Info().Msg("Dispatch cycle started")

	c.Results, c.Err = r.execute(ctx, items, &c, logger)
	c.Duration = time.Since(start)

	cycleDuration.WithLabelValues(string(mode)).Observe(c.Duration.Seconds())
	if c.Err != nil {
		c.Results = nil
		c.Err = fmt.Errorf("%s cycle %s: %w", mode, c.RunID, c.Err)
		cyclesTotal.WithLabelValues(string(mode), "failure").Inc()
		logger.Error().Err(c.Err).Dur("duration", c.Duration).Msg("Dispatch cycle failed")
		return c
	}

	cyclesTotal.WithLabelValues(string(mode), "success").Inc()
	cycleItems.WithLabelValues(string(mode)).Add(float64(len(items)))
	if mode != ModeSerial {
		cycleUnits.WithLabelValues(string(mode)).Observe(float64(c.Units))
	}
	logger.Info().
		Int("units", c.Units).
		Dur("duration", c.Duration).
		Msg("Dispatch cycle complete")
	return c
}

func (r *Runner) execute(ctx context.Context, items []string, c *Cycle, logger zerolog.Logger) ([]int, error) {
	switch c.Mode {
	case ModeSerial:
		return r.runSerial(ctx, items)
	case ModeParallel:
		if r.backend == nil {
			return nil, errors.New("no backend configured")
		}
		if ceiling := r.backend.MaxWorkers(); c.Items > ceiling {
			logger.Warn().
				Int("max_workers", ceiling).
				Msg("Per-item dispatch exceeds worker ceiling - units will queue")
		}
		return r.runParallel(ctx, items, c)
	case ModeBatched:
		c.BatchSize = r.config.BatchSize
		return r.runBatched(ctx, items, c)
	case ModeAuto:
		resolved, size := r.plan(c.Items)
		logger.Debug().
			Str("resolved_mode", string(resolved)).
			Int("batch_size", size).
			Msg("Auto mode resolved")
		if resolved == ModeParallel {
			return r.runParallel(ctx, items, c)
		}
		c.BatchSize = size
		return r.runBatched(ctx, items, c)
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", c.Mode)
	}
}

// plan chooses per-item dispatch while n fits under the worker ceiling, and
// otherwise the smallest batch size >= the configured one that keeps the unit
// count within the ceiling.
func (r *Runner) plan(n int) (Mode, int) {
	if r.backend == nil {
		return ModeBatched, r.config.BatchSize
	}
	ceiling := max(r.backend.MaxWorkers(), 1)
	if n <= ceiling {
		return ModeParallel, 1
	}
	return ModeBatched, max(r.config.BatchSize, batch.Count(n, ceiling))
}

// runSerial transforms items in order; the first unrecovered error aborts.
func (r *Runner) runSerial(ctx context.Context, items []string) ([]int, error) {
	results := make([]int, len(items))
	for i, id := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.itemTask(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results[i] = n
	}
	return results, nil
}

// runParallel dispatches one unit per item.
func (r *Runner) runParallel(ctx context.Context, items []string, c *Cycle) ([]int, error) {
	c.Units = len(items)
	futures, err := executor.Dispatch(ctx, r.backend, items, r.itemTask)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	out, err := executor.Collect(ctx, futures)
	if err != nil {
		return nil, err
	}
	if len(out) != len(items) {
		return nil, fmt.Errorf("%w: got %d results for %d items", batch.ErrResultCountMismatch, len(out), len(items))
	}
	return out, nil
}

// runBatched partitions items, dispatches one unit per batch and flattens
// the per-batch results.
func (r *Runner) runBatched(ctx context.Context, items []string, c *Cycle) ([]int, error) {
	batches, err := batch.Partition(items, c.BatchSize)
	if err != nil {
		return nil, err
	}
	c.Units = len(batches)

	futures, err := executor.Dispatch(ctx, r.backend, batches, r.batchTask,
		executor.Sized(func(i int) int { return len(batches[i]) }))
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	perBatch, err := executor.Collect(ctx, futures)
	if err != nil {
		return nil, err
	}
	return batch.Flatten(perBatch, len(items))
}
