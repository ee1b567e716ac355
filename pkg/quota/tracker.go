package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaBlocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "books_quota_blocked",
		Help: "1 while the shared quota cooldown window is open",
	})

	quotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_quota_blocks_total",
		Help: "Total requests refused locally because of an open cooldown window",
	})

	quotaRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_quota_rejections_total",
		Help: "Total 429 responses received from the Books API",
	})
)

// Tracker records quota rejections and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves the current quota state from Redis.
// Returns an open (unblocked) state if nothing has been stored.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	rejections, err := t.redis.Get(ctx, RedisKeyRejections).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get rejections: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err == redis.Nil {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &State{
		Rejections: rejections,
		LastUpdate: lastUpdate,
	}
	if blockedUntil > 0 {
		state.BlockedUntil = time.UnixMilli(blockedUntil)
	}
	return state, nil
}

// UpdateFromResponse opens a cooldown window when resp is a 429.
// Other responses leave the state untouched.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	now := t.now()
	cooldown := ParseRetryAfter(resp.Header.Get("Retry-After"), now)
	blockedUntil := now.Add(cooldown)

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyBlockedUntil, blockedUntil.UnixMilli(), 0)
	rejections := pipe.Incr(ctx, RedisKeyRejections)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	quotaRejectionsTotal.Inc()
	quotaBlocked.Set(1)

	t.logger.Warn().
		Dur("cooldown", cooldown).
		Time("blocked_until", blockedUntil).
		Int64("rejections", rejections.Val()).
		Msg("Books API quota exceeded - pausing requests")

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now.
// It never sleeps; a refused request is the caller's to fail or reschedule.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	if state.IsBlocked(t.now()) {
		t.logger.Debug().
			Time("blocked_until", state.BlockedUntil).
			Msg("Quota cooldown active - refusing request")
		quotaBlocksTotal.Inc()
		return false, nil
	}

	quotaBlocked.Set(0)
	return true, nil
}

// ParseRetryAfter interprets a Retry-After header as delta seconds or an HTTP
// date relative to now. Missing or unusable values yield DefaultCooldown.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultCooldown
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return DefaultCooldown
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return DefaultCooldown
}
