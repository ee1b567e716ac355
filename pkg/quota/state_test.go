package quota

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_IsBlocked(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{name: "never blocked", state: State{}, want: false},
		{name: "window open", state: State{BlockedUntil: now.Add(30 * time.Second)}, want: true},
		{name: "window closed", state: State{BlockedUntil: now.Add(-time.Second)}, want: false},
		{name: "closes exactly now", state: State{BlockedUntil: now}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsBlocked(now))
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	past := State{BlockedUntil: time.Now().Add(-time.Minute)}
	assert.Equal(t, time.Duration(0), past.TimeUntilReset())

	future := State{BlockedUntil: time.Now().Add(time.Minute)}
	d := future.TimeUntilReset()
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "empty", value: "", want: DefaultCooldown},
		{name: "delta seconds", value: "120", want: 120 * time.Second},
		{name: "padded delta", value: " 5 ", want: 5 * time.Second},
		{name: "zero", value: "0", want: DefaultCooldown},
		{name: "negative", value: "-3", want: DefaultCooldown},
		{name: "http date", value: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second},
		{name: "date in the past", value: now.Add(-time.Hour).Format(http.TimeFormat), want: DefaultCooldown},
		{name: "garbage", value: "soon", want: DefaultCooldown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRetryAfter(tt.value, now))
		})
	}
}
