package ratelimit_test

import (
	"testing"
	"time"

	"github.com/paperlens/paperlens/domain/ratelimit"
)

var arrival = time.Date(2024, 1, 15, 12, 37, 42, 0, time.UTC)

func TestKeyFor_TruncatesToHour(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !key.WindowStart.Equal(want) {
		t.Errorf("window start = %v, want %v", key.WindowStart, want)
	}
}

func TestKeyFor_SameWindowSameKey(t *testing.T) {
	a := ratelimit.KeyFor("user-1", "/analyze", arrival)
	b := ratelimit.KeyFor("user-1", "/analyze", arrival.Add(20*time.Minute))

	if a != b {
		t.Errorf("keys differ inside one window: %v vs %v", a, b)
	}
}

func TestKeyFor_WindowsAreFixedNotSliding(t *testing.T) {
	late := time.Date(2024, 1, 15, 12, 59, 0, 0, time.UTC)
	early := time.Date(2024, 1, 15, 13, 1, 0, 0, time.UTC)

	a := ratelimit.KeyFor("user-1", "/analyze", late)
	b := ratelimit.KeyFor("user-1", "/analyze", early)
	if a == b {
		t.Error("12:59 and 13:01 must land in different windows")
	}
}

func TestDecide_AllowsWithinLimit(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	d := ratelimit.Decide(key, 6, 20)
	if !d.Allowed {
		t.Error("expected request to be allowed")
	}
	if d.Remaining != 14 {
		t.Errorf("remaining = %d, want 14", d.Remaining)
	}
	if d.Limit != 20 {
		t.Errorf("limit = %d, want 20", d.Limit)
	}
}

func TestDecide_DeniesOverLimit(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	d := ratelimit.Decide(key, 21, 20)
	if d.Allowed {
		t.Error("expected request to be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
}

func TestDecide_ResetAtTopOfNextHour(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	d := ratelimit.Decide(key, 1, 20)
	want := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	if !d.ResetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestDecide_ExactlyAtLimitIsAllowed(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	// The count is post-increment: count == limit means this request took
	// the last slot.
	d := ratelimit.Decide(key, 20, 20)
	if !d.Allowed {
		t.Error("request taking the last slot must be allowed")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
}

func TestDeny(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	d := ratelimit.Deny(key, 20)
	if d.Allowed {
		t.Error("deny decision must not allow")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
	want := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	if !d.ResetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestAllow_FailOpenReportsFullQuota(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)

	d := ratelimit.Allow(key, 20)
	if !d.Allowed {
		t.Error("fail-open decision must allow")
	}
	if d.Remaining != 20 {
		t.Errorf("remaining = %d, want full quota 20", d.Remaining)
	}
}

func TestRetryAfter(t *testing.T) {
	key := ratelimit.KeyFor("user-1", "/analyze", arrival)
	d := ratelimit.Decide(key, 21, 20)

	// 12:37:42 -> 13:00:00 is 1338 seconds.
	if got := d.RetryAfter(arrival); got != 1338 {
		t.Errorf("retryAfter = %d, want 1338", got)
	}

	// Never below one second.
	if got := d.RetryAfter(d.ResetAt); got != 1 {
		t.Errorf("retryAfter at reset = %d, want 1", got)
	}
}
