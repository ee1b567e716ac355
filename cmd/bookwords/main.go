package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/book-fanout/pkg/books"
	"github.com/Sternrassler/book-fanout/pkg/config"
	"github.com/Sternrassler/book-fanout/pkg/executor"
	"github.com/Sternrassler/book-fanout/pkg/fanout"
	"github.com/Sternrassler/book-fanout/pkg/logging"
	"github.com/Sternrassler/book-fanout/pkg/metrics"
	"github.com/Sternrassler/book-fanout/pkg/wordcount"
	"github.com/Sternrassler/book-fanout/pkg/workitems"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.LookupEnv).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	isbnsPath  string
	mode       string
	batchSize  int
	workers    int
}

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "bookwords",
		Short:        "Count words in book descriptions with batched fan-out",
		Long:         "bookwords fetches Google Books descriptions for a list of ISBNs across a bounded worker pool and reports word counts.",
		Version:      version,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.isbnsPath, "isbns", "", "file with one ISBN per line (required)")
	pf.StringVar(&opts.mode, "mode", "", "dispatch mode: serial, parallel, batched or auto")
	pf.IntVar(&opts.batchSize, "batch-size", 0, "items per unit in batched mode")
	pf.IntVar(&opts.workers, "workers", 0, "maximum concurrent units")

	cmd.AddCommand(newRunCmd(opts, lookupEnv))
	cmd.AddCommand(newCompareCmd(opts, lookupEnv))

	return cmd
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(cmd *cobra.Command, opts *options, lookupEnv func(string) (string, bool)) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Dispatch.Mode = opts.mode
	}
	if flags.Changed("batch-size") {
		cfg.Dispatch.BatchSize = opts.batchSize
	}
	if flags.Changed("workers") {
		cfg.Executor.MaxWorkers = opts.workers
	}

	return cfg, cfg.Validate()
}

// app holds the components built from a validated configuration.
type app struct {
	cfg    config.Config
	items  []string
	runner *fanout.Runner
	logger zerolog.Logger

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func setup(cmd *cobra.Command, opts *options, lookupEnv func(string) (string, bool)) (*app, error) {
	if opts.isbnsPath == "" {
		return nil, errors.New("--isbns is required")
	}

	cfg, err := loadConfig(cmd, opts, lookupEnv)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	a := &app{cfg: cfg, logger: logging.NewLogger("bookwords")}

	a.items, err = workitems.ReadFile(opts.isbnsPath)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	if redisOpts != nil {
		rdb = redis.NewClient(redisOpts)
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(cmd.Context()).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
		}
		a.logger.Info().Str("addr", redisOpts.Addr).Msg("Quota gate enabled")
	}

	client, err := books.New(cfg.BooksClient(rdb))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	pool := executor.NewPool(cfg.Pool())
	a.closers = append(a.closers, pool.Close)

	policy := cfg.ItemPolicy()
	a.runner, err = fanout.NewRunner(pool, wordcount.Item(client, policy), wordcount.Batch(client, policy), cfg.Runner())
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		a.closers = append(a.closers, serveMetrics(cfg.MetricsAddr, a.logger))
	}

	return a, nil
}

// serveMetrics starts the /metrics endpoint and returns its shutdown func.
func serveMetrics(addr string, logger zerolog.Logger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
