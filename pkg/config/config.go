// Package config loads runtime settings for the bookwords command from
// defaults, an optional YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/book-fanout/pkg/books"
	"github.com/Sternrassler/book-fanout/pkg/executor"
	"github.com/Sternrassler/book-fanout/pkg/fanout"
	"github.com/Sternrassler/book-fanout/pkg/logging"
	"github.com/Sternrassler/book-fanout/pkg/wordcount"
)

// DefaultUserAgent identifies the command to the Books API.
const DefaultUserAgent = "bookwords/1.0 (+https://github.com/Sternrassler/book-fanout)"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime settings.
type Config struct {
	Books       BooksConfig    `yaml:"books"`
	Executor    ExecutorConfig `yaml:"executor"`
	Dispatch    DispatchConfig `yaml:"dispatch"`
	Redis       RedisConfig    `yaml:"redis"`
	Logging     LoggingConfig  `yaml:"logging"`
	MetricsAddr string         `yaml:"metrics_addr"`
}

// BooksConfig configures the Books API client.
type BooksConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ExecutorConfig configures the worker pool.
type ExecutorConfig struct {
	MaxWorkers  int           `yaml:"max_workers"`
	UnitTimeout time.Duration `yaml:"unit_timeout"`
	BufferSize  int           `yaml:"buffer_size"`
}

// DispatchConfig configures how items are grouped into units.
type DispatchConfig struct {
	Mode      string `yaml:"mode"`
	BatchSize int    `yaml:"batch_size"`
	Policy    string `yaml:"policy"`
}

// RedisConfig enables the shared quota gate when URL is set.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	ex := executor.DefaultConfig()
	fo := fanout.DefaultConfig()
	return Config{
		Books: BooksConfig{
			BaseURL:   books.DefaultBaseURL,
			UserAgent: DefaultUserAgent,
			Timeout:   10 * time.Second,
		},
		Executor: ExecutorConfig{
			MaxWorkers:  ex.MaxWorkers,
			UnitTimeout: ex.UnitTimeout,
			BufferSize:  ex.BufferSize,
		},
		Dispatch: DispatchConfig{
			Mode:      string(fo.Mode),
			BatchSize: fo.BatchSize,
			Policy:    wordcount.RecoverMissing.String(),
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load returns Default overlaid with the YAML file at path.
// An empty path returns Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through lookup.
// Pass os.LookupEnv in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("BOOKS_BASE_URL", &c.Books.BaseURL)
	str("BOOKS_API_KEY", &c.Books.APIKey)
	str("BOOKS_USER_AGENT", &c.Books.UserAgent)
	str("BOOKS_MODE", &c.Dispatch.Mode)
	str("REDIS_URL", &c.Redis.URL)
	str("LOG_LEVEL", &c.Logging.Level)
	str("METRICS_ADDR", &c.MetricsAddr)

	if err := num("BOOKS_MAX_WORKERS", &c.Executor.MaxWorkers); err != nil {
		return err
	}
	return num("BOOKS_BATCH_SIZE", &c.Dispatch.BatchSize)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Books.BaseURL == "" {
		return fmt.Errorf("%w: books.base_url is required", ErrInvalidConfig)
	}
	if c.Books.UserAgent == "" {
		return fmt.Errorf("%w: books.user_agent is required", ErrInvalidConfig)
	}
	if c.Executor.MaxWorkers < 1 {
		return fmt.Errorf("%w: executor.max_workers must be >= 1 (got %d)", ErrInvalidConfig, c.Executor.MaxWorkers)
	}
	if c.Dispatch.BatchSize < 1 {
		return fmt.Errorf("%w: dispatch.batch_size must be >= 1 (got %d)", ErrInvalidConfig, c.Dispatch.BatchSize)
	}
	if _, err := fanout.ParseMode(c.Dispatch.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := wordcount.ParsePolicy(c.Dispatch.Policy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("%w: redis.url: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// BooksClient returns the client configuration. redisClient may be nil.
func (c *Config) BooksClient(redisClient *redis.Client) books.Config {
	return books.Config{
		BaseURL:   c.Books.BaseURL,
		APIKey:    c.Books.APIKey,
		UserAgent: c.Books.UserAgent,
		Timeout:   c.Books.Timeout,
		Redis:     redisClient,
	}
}

// Pool returns the worker pool configuration.
func (c *Config) Pool() executor.Config {
	return executor.Config{
		MaxWorkers:  c.Executor.MaxWorkers,
		UnitTimeout: c.Executor.UnitTimeout,
		BufferSize:  c.Executor.BufferSize,
	}
}

// Runner returns the dispatch configuration. Call Validate first.
func (c *Config) Runner() fanout.Config {
	mode, _ := fanout.ParseMode(c.Dispatch.Mode)
	return fanout.Config{Mode: mode, BatchSize: c.Dispatch.BatchSize}
}

// ItemPolicy returns the item error policy. Call Validate first.
func (c *Config) ItemPolicy() wordcount.Policy {
	p, _ := wordcount.ParsePolicy(c.Dispatch.Policy)
	return p
}

// Log returns the logger configuration writing to stderr.
func (c *Config) Log() logging.Config {
	lvl, _ := logging.ParseLevel(c.Logging.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = lvl
	cfg.Pretty = c.Logging.Pretty
	return cfg
}

// RedisOptions parses the Redis URL. It returns nil when Redis is disabled.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	return redis.ParseURL(c.Redis.URL)
}
