// Package ratelimit implements the per-room sliding-window send limiter.
package ratelimit

import "time"

// Fixed relay policy: 8 sends per sender per 10 seconds, per room
const (
	DefaultLimit  = 8
	DefaultWindow = 10 * time.Second
)

// Entry records one accepted send
type Entry struct {
	At     time.Time
	Sender string
}

// Log is a room's ordered record of recent accepted sends.
// ARCHITECTURAL DISCOVERY: Log has no lock of its own; it lives inside a
// Room and is only touched while that room's lock is held
type Log struct {
	entries []Entry
}

// Len returns the number of entries currently retained
func (l *Log) Len() int {
	return len(l.entries)
}

// Limiter decides whether a sender is throttled against a Log
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter; a nil clock falls back to time.Now
func NewLimiter(limit int, window time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    now,
	}
}

// NewDefaultLimiter creates a limiter with the fixed relay policy
func NewDefaultLimiter(now func() time.Time) *Limiter {
	return NewLimiter(DefaultLimit, DefaultWindow, now)
}

// Now returns the limiter's clock reading
func (rl *Limiter) Now() time.Time {
	return rl.now()
}

// Throttled prunes entries that fell out of the window and reports whether
// sender already has limit entries left in it.
// FUNCTIONAL DISCOVERY: The check runs before the send is recorded, so the
// window admits exactly limit sends, never limit+1
func (rl *Limiter) Throttled(log *Log, sender string) bool {
	rl.prune(log, rl.now())

	count := 0
	for _, e := range log.entries {
		if e.Sender == sender {
			count++
		}
	}
	return count >= rl.limit
}

// Record appends an accepted send. Throttled attempts must not be recorded,
// otherwise a sender that keeps trying would never recover.
func (rl *Limiter) Record(log *Log, sender string) time.Time {
	at := rl.now()
	log.entries = append(log.entries, Entry{At: at, Sender: sender})
	return at
}

// prune drops entries whose age is at least the window
// TECHNICAL DISCOVERY: Entries are appended in clock order, so the first
// entry still inside the window marks the cut
func (rl *Limiter) prune(log *Log, now time.Time) {
	cut := 0
	for cut < len(log.entries) && now.Sub(log.entries[cut].At) >= rl.window {
		cut++
	}
	if cut == 0 {
		return
	}
	remaining := copy(log.entries, log.entries[cut:])
	clear(log.entries[remaining:])
	log.entries = log.entries[:remaining]
}
