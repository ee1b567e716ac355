package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/book-fanout/pkg/books"
	"github.com/Sternrassler/book-fanout/pkg/fanout"
	"github.com/Sternrassler/book-fanout/pkg/logging"
	"github.com/Sternrassler/book-fanout/pkg/wordcount"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, books.DefaultBaseURL, cfg.Books.BaseURL)
	assert.Equal(t, DefaultUserAgent, cfg.Books.UserAgent)
	assert.Equal(t, 10, cfg.Executor.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.Executor.UnitTimeout)
	assert.Equal(t, "auto", cfg.Dispatch.Mode)
	assert.Equal(t, 10, cfg.Dispatch.BatchSize)
	assert.Empty(t, cfg.Redis.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookwords.yaml")
	content := `
books:
  api_key: secret
  timeout: 5s
executor:
  max_workers: 4
  unit_timeout: 2m
dispatch:
  mode: batched
  batch_size: 25
  policy: recover-all
redis:
  url: redis://localhost:6379/2
logging:
  level: debug
  pretty: true
metrics_addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "secret", cfg.Books.APIKey)
	assert.Equal(t, books.DefaultBaseURL, cfg.Books.BaseURL, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Books.Timeout)
	assert.Equal(t, 4, cfg.Executor.MaxWorkers)
	assert.Equal(t, 2*time.Minute, cfg.Executor.UnitTimeout)
	assert.Equal(t, fanout.Config{Mode: fanout.ModeBatched, BatchSize: 25}, cfg.Runner())
	assert.Equal(t, wordcount.RecoverAll, cfg.ItemPolicy())
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	logCfg := cfg.Log()
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.True(t, logCfg.Pretty)

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	require.NotNil(t, opts)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_Errors(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor:\n  unit_timeout: soon\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"BOOKS_BASE_URL":    "http://127.0.0.1:8080",
		"BOOKS_API_KEY":     "k",
		"BOOKS_USER_AGENT":  "test/1.0",
		"BOOKS_MAX_WORKERS": "3",
		"BOOKS_BATCH_SIZE":  "7",
		"BOOKS_MODE":        "parallel",
		"REDIS_URL":         "redis://cache:6379/0",
		"LOG_LEVEL":         "warn",
		"METRICS_ADDR":      ":9100",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Books.BaseURL)
	assert.Equal(t, "k", cfg.Books.APIKey)
	assert.Equal(t, "test/1.0", cfg.Books.UserAgent)
	assert.Equal(t, 3, cfg.Executor.MaxWorkers)
	assert.Equal(t, 7, cfg.Dispatch.BatchSize)
	assert.Equal(t, fanout.ModeParallel, cfg.Runner().Mode)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.MetricsAddr)

	bc := cfg.BooksClient(nil)
	assert.Equal(t, "http://127.0.0.1:8080", bc.BaseURL)
	assert.Nil(t, bc.Redis)

	pc := cfg.Pool()
	assert.Equal(t, 3, pc.MaxWorkers)
}

func TestApplyEnv_EmptyAndInvalid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{"BOOKS_MODE": ""})))
	assert.Equal(t, "auto", cfg.Dispatch.Mode)

	err := cfg.ApplyEnv(envMap(map[string]string{"BOOKS_BATCH_SIZE": "ten"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKS_BATCH_SIZE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no base url", func(c *Config) { c.Books.BaseURL = "" }},
		{"no user agent", func(c *Config) { c.Books.UserAgent = "" }},
		{"zero workers", func(c *Config) { c.Executor.MaxWorkers = 0 }},
		{"zero batch size", func(c *Config) { c.Dispatch.BatchSize = 0 }},
		{"negative batch size", func(c *Config) { c.Dispatch.BatchSize = -1 }},
		{"unknown mode", func(c *Config) { c.Dispatch.Mode = "eager" }},
		{"unknown policy", func(c *Config) { c.Dispatch.Policy = "ignore" }},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad redis url", func(c *Config) { c.Redis.URL = "memcached://x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestRedisOptions_Disabled(t *testing.T) {
	cfg := Default()
	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Nil(t, opts)
}
