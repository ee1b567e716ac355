// Package quota gates Google Books requests on a shared cooldown window.
// When the API answers 429 Too Many Requests, the window is stored in Redis
// so every process using the same API key stops calling until it closes.
package quota

import (
	"time"
)

// Redis keys for quota state storage.
const (
	RedisKeyBlockedUntil = "books:quota:blocked_until"
	RedisKeyRejections   = "books:quota:rejections"
	RedisKeyLastUpdate   = "books:quota:last_update"
)

// DefaultCooldown applies when a 429 response carries no usable Retry-After.
const DefaultCooldown = 60 * time.Second

// State is the current quota cooldown state shared across processes.
type State struct {
	// BlockedUntil is when requests may resume. Zero means never blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// Rejections counts 429 responses seen since the state was created.
	Rejections int64 `json:"rejections"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether the cooldown window is still open at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns how long until requests may resume, or 0.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}
