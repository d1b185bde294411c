// Package ratelimit provides pure fixed-window rate limiting math.
// Windows are hour-aligned: a burst at 12:59 and another at 13:01 land in
// different windows and are not smoothed. All functions are deterministic.
package ratelimit

import "time"

// Window is the fixed bucket length. Window starts are truncated to the
// top of the hour.
const Window = time.Hour

// Default ceilings per window.
const (
	AnalyzeLimit = 20  // the metered analysis endpoint
	DefaultLimit = 100 // every other endpoint
)

// Key identifies one quota bucket: (identity, endpoint, hour-aligned
// window start).
type Key struct {
	Identity    string
	Endpoint    string
	WindowStart time.Time
}

// KeyFor derives the bucket key for a request arriving at now.
func KeyFor(identity, endpoint string, now time.Time) Key {
	return Key{
		Identity:    identity,
		Endpoint:    endpoint,
		WindowStart: now.UTC().Truncate(Window),
	}
}

// Decision is the outcome of a quota check. Its fields feed the
// X-RateLimit-* response headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Decide interprets a post-increment counter value against the ceiling.
// count is the window's request_count after the storage-level atomic
// check-and-increment: count <= limit means this request was admitted.
func Decide(key Key, count, limit int) Decision {
	d := Decision{
		Allowed: count <= limit,
		Limit:   limit,
		ResetAt: key.WindowStart.Add(Window),
	}
	if remaining := limit - count; remaining > 0 {
		d.Remaining = remaining
	}
	return d
}

// Deny is the decision for a request refused by the storage-level
// conditional increment: the counter stayed at the ceiling.
func Deny(key Key, limit int) Decision {
	return Decision{
		Allowed: false,
		Limit:   limit,
		ResetAt: key.WindowStart.Add(Window),
	}
}

// Allow is the decision taken when the counter storage is unavailable and
// the limiter fails open: admitted, full quota reported.
func Allow(key Key, limit int) Decision {
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetAt:   key.WindowStart.Add(Window),
	}
}

// RetryAfter returns the whole seconds until the window resets, floor 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(d.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
