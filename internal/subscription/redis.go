package subscription

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bikeman/internal/ixsi"
	"bikeman/pkg/metrics"
)

// purgeScript deletes each field only while it still holds the value the caller read,
// so a re-subscription written after the read survives. ARGV is field, value pairs.
var purgeScript = redis.NewScript(`
local removed = 0
for i = 1, #ARGV, 2 do
	if redis.call('HGET', KEYS[1], ARGV[i]) == ARGV[i + 1] then
		removed = removed + redis.call('HDEL', KEYS[1], ARGV[i])
	end
end
return removed
`)

// RedisStore keeps the subscriptions of each system in one hash named <prefix><systemID>.
// Fields are booking target ids; values are the expiry in unix milliseconds, 0 for none.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) key(systemID string) string {
	return s.prefix + systemID
}

func (s *RedisStore) Subscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID, ttl *time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	var value int64
	if expiresAt := expiryFrom(s.now(), ttl); expiresAt != nil {
		value = expiresAt.UnixMilli()
	}

	fields := make([]interface{}, 0, 2*len(targets))
	for _, t := range targets {
		fields = append(fields, t.String(), value)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(systemID), fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Unsubscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID) error {
	if len(targets) == 0 {
		return nil
	}

	fields := make([]string, len(targets))
	for i, t := range targets {
		fields[i] = t.String()
	}

	if err := s.client.HDel(ctx, s.key(systemID), fields...).Err(); err != nil {
		return fmt.Errorf("redis unsubscribe failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Active(ctx context.Context, systemID string) ([]Subscription, error) {
	entries, err := s.client.HGetAll(ctx, s.key(systemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read subscriptions failed: %w", err)
	}

	now := s.now()
	out := make([]Subscription, 0, len(entries))
	var expired []interface{}
	for field, raw := range entries {
		target, err := ixsi.ParseBookingTargetID(field)
		if err != nil {
			expired = append(expired, field, raw)
			continue
		}
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q for %s: %w", raw, field, err)
		}

		sub := Subscription{SystemID: systemID, Target: target}
		if millis > 0 {
			at := time.UnixMilli(millis)
			sub.ExpiresAt = &at
		}
		if !sub.activeAt(now) {
			expired = append(expired, field, raw)
			continue
		}
		out = append(out, sub)
	}

	if len(expired) > 0 {
		removed, err := purgeScript.Run(ctx, s.client, []string{s.key(systemID)}, expired...).Int()
		if err != nil {
			return nil, fmt.Errorf("redis purge expired subscriptions failed: %w", err)
		}
		metrics.AddSubscriptionsExpired(removed)
	}

	sortByTarget(out)
	return out, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		n, err := s.client.HLen(ctx, iter.Val()).Result()
		if err != nil {
			return 0, fmt.Errorf("redis HLEN failed: %w", err)
		}
		count += int(n)
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}
