package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// send mirrors the relay's check-then-record sequence and reports acceptance
func send(rl *Limiter, log *Log, who string) bool {
	if rl.Throttled(log, who) {
		return false
	}
	rl.Record(log, who)
	return true
}

// TestLimiter_ExactLimits tests that exactly 8 sends pass inside one window
func TestLimiter_ExactLimits(t *testing.T) {
	clock := newFakeClock()
	rl := NewDefaultLimiter(clock.Now)
	var log Log

	for i := 0; i < DefaultLimit; i++ {
		require.True(t, send(rl, &log, "a"), "send %d should be accepted", i+1)
		clock.Advance(100 * time.Millisecond)
	}

	assert.False(t, send(rl, &log, "a"), "9th send inside the window must be throttled")
	assert.Equal(t, DefaultLimit, log.Len(), "throttled attempts are not recorded")
}

// TestLimiter_PerSender tests that senders sharing a room log are counted separately
func TestLimiter_PerSender(t *testing.T) {
	clock := newFakeClock()
	rl := NewDefaultLimiter(clock.Now)
	var log Log

	for i := 0; i < DefaultLimit; i++ {
		require.True(t, send(rl, &log, "a"))
	}
	assert.False(t, send(rl, &log, "a"))
	assert.True(t, send(rl, &log, "b"), "another sender keeps its own budget")
}

// TestLimiter_WindowRecovery tests that the limiter self-clears after the window
func TestLimiter_WindowRecovery(t *testing.T) {
	clock := newFakeClock()
	rl := NewDefaultLimiter(clock.Now)
	var log Log

	for i := 0; i < DefaultLimit; i++ {
		require.True(t, send(rl, &log, "a"))
	}
	require.False(t, send(rl, &log, "a"))

	clock.Advance(DefaultWindow - time.Millisecond)
	assert.False(t, send(rl, &log, "a"), "still inside the window")

	clock.Advance(time.Millisecond)
	assert.True(t, send(rl, &log, "a"), "window elapsed")
	assert.Equal(t, 1, log.Len(), "expired entries are pruned")
}

// TestLimiter_SlidingNotFixed tests that old entries expire one by one
func TestLimiter_SlidingNotFixed(t *testing.T) {
	clock := newFakeClock()
	rl := NewLimiter(2, time.Second, clock.Now)
	var log Log

	require.True(t, send(rl, &log, "a")) // t=0
	clock.Advance(600 * time.Millisecond)
	require.True(t, send(rl, &log, "a")) // t=600ms
	assert.False(t, send(rl, &log, "a"))

	clock.Advance(400 * time.Millisecond) // t=1s: first entry leaves
	assert.True(t, send(rl, &log, "a"))
	assert.False(t, send(rl, &log, "a"), "second entry is still inside the window")
}

func TestNewLimiter_DefaultClock(t *testing.T) {
	rl := NewLimiter(1, time.Minute, nil)
	assert.WithinDuration(t, time.Now(), rl.Now(), time.Second)
}
