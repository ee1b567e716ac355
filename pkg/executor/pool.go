package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds pool configuration.
type Config struct {
	// MaxWorkers is the number of units that may execute at once.
	MaxWorkers int
	// UnitTimeout bounds the execution of a single-item unit. A unit
	// carrying n items (see WithUnitSize) gets n times this budget.
	UnitTimeout time.Duration
	// BufferSize is the number of units that may wait for a worker before
	// Submit blocks.
	BufferSize int
}

// DefaultConfig returns a configuration sized for a modest API quota.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:  10,
		UnitTimeout: 30 * time.Second,
		BufferSize:  400,
	}
}

type queuedJob struct {
	ctx context.Context
	job Job
}

// Pool is an in-process Backend backed by a fixed set of worker goroutines.
type Pool struct {
	config Config
	queue  chan queuedJob
	group  errgroup.Group
	logger zerolog.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewPool starts a pool with config.MaxWorkers workers.
// Non-positive fields fall back to DefaultConfig values.
func NewPool(config Config) *Pool {
	def := DefaultConfig()
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = def.MaxWorkers
	}
	if config.UnitTimeout <= 0 {
		config.UnitTimeout = def.UnitTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}

	p := &Pool{
		config: config,
		queue:  make(chan queuedJob, config.BufferSize),
		logger: log.With().Str("component", "executor").Logger(),
	}

	for i := 0; i < config.MaxWorkers; i++ {
		workerID := i
		p.group.Go(func() error {
			p.worker(workerID)
			return nil
		})
	}

	p.logger.Debug().
		Int("max_workers", config.MaxWorkers).
		Int("buffer_size", config.BufferSize).
		Dur("unit_timeout", config.UnitTimeout).
		Msg("Executor pool started")

	return p
}

// MaxWorkers implements Backend.
func (p *Pool) MaxWorkers() int {
	return p.config.MaxWorkers
}

// Submit implements Backend. It blocks while the queue is full.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- queuedJob{ctx: ctx, job: job}:
		queueDepth.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, lets queued jobs finish and waits for workers.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	return p.group.Wait()
}

// worker runs queued jobs until the queue is closed.
func (p *Pool) worker(workerID int) {
	unitsProcessed := 0

	for q := range p.queue {
		queueDepth.Dec()
		p.run(workerID, q)
		unitsProcessed++
	}

	if unitsProcessed > 0 {
		p.logger.Debug().
			Int("worker_id", workerID).
			Int("units_processed", unitsProcessed).
			Msg("Worker completed")
	}
}

// unitTimeout scales the per-item budget by the unit's item count.
func (p *Pool) unitTimeout(ctx context.Context) time.Duration {
	return p.config.UnitTimeout * time.Duration(UnitSize(ctx))
}

func (p *Pool) run(workerID int, q queuedJob) {
	ctx, cancel := context.WithTimeout(q.ctx, p.unitTimeout(q.ctx))
	start := time.Now()
	unitsInFlight.Inc()

	defer func() {
		cancel()
		unitsInFlight.Dec()
		unitDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Msg("Job panicked")
		}
	}()

	q.job(ctx)
}
