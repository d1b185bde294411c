// Package redis provides a Redis-backed rate window store for
// multi-instance deployments.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paperlens/paperlens/domain/ratelimit"
	"github.com/paperlens/paperlens/ports"
)

// admitScript performs the check-and-increment atomically on the server.
// A denied request leaves the counter untouched. The key expires shortly
// after its window closes, so Redis handles cleanup on its own.
var admitScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
	return {count, 0}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIREAT', KEYS[1], tonumber(ARGV[2]))
end
return {count, 1}
`)

// RateWindowStore implements ports.RateWindowStore on Redis.
type RateWindowStore struct {
	client *redis.Client
}

// NewRateWindowStore creates a Redis rate window store.
func NewRateWindowStore(client *redis.Client) *RateWindowStore {
	return &RateWindowStore{client: client}
}

func windowKey(key ratelimit.Key) string {
	return fmt.Sprintf("ratewindow:%s:%s:%d", key.Identity, key.Endpoint, key.WindowStart.UTC().Unix())
}

// Admit runs the conditional increment script for the window key.
func (s *RateWindowStore) Admit(ctx context.Context, key ratelimit.Key, limit int) (int, bool, error) {
	// Keep the key for one window past its close so a late request still
	// sees the exhausted counter rather than a fresh one.
	expireAt := key.WindowStart.Add(2 * ratelimit.Window).UTC().Unix()

	res, err := admitScript.Run(ctx, s.client, []string{windowKey(key)}, limit, expireAt).Slice()
	if err != nil {
		return 0, false, fmt.Errorf("admit script: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("admit script: unexpected reply %v", res)
	}
	count, ok1 := res[0].(int64)
	admitted, ok2 := res[1].(int64)
	if !ok1 || !ok2 {
		return 0, false, fmt.Errorf("admit script: unexpected reply types %v", res)
	}
	return int(count), admitted == 1, nil
}

// Sweep is a no-op: window keys carry their own expiry.
func (s *RateWindowStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

var _ ports.RateWindowStore = (*RateWindowStore)(nil)
