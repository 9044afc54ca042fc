package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/relaychat/moderation/internal/models"
)

// badgeTTL bounds how long a ban badge may be served without a store read.
// Correctness does not depend on it: GetBanBadge re-checks end_at on every
// hit, so an elapsed ban is never reported as still in force.
const badgeTTL = 30 * time.Second

type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ban badge cache
//
// The badge is the read-path payload rendered next to a subject: reason and
// window of the active ban, or an explicit "none" marker so the absence of a
// ban is cacheable too.

type banBadge struct {
	None   bool              `json:"none"`
	Record *models.BanRecord `json:"record,omitempty"`
}

func badgeKey(subject models.Subject) string {
	return fmt.Sprintf("banbadge:%s:%s", subject.Type, subject.ID.String())
}

// SetBanBadge caches the active ban (or its absence) for a subject
func (r *RedisClient) SetBanBadge(subject models.Subject, rec *models.BanRecord) error {
	badge := banBadge{None: rec == nil, Record: rec}
	data, err := json.Marshal(badge)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, badgeKey(subject), data, badgeTTL).Err()
}

// GetBanBadge returns the cached active ban for a subject. The second return
// is false on a miss or when the cached record has run past its end, in
// which case the caller must consult the store (which also resolves the
// expiration).
func (r *RedisClient) GetBanBadge(subject models.Subject) (*models.BanRecord, bool) {
	data, err := r.client.Get(r.ctx, badgeKey(subject)).Result()
	if err != nil {
		return nil, false
	}

	var badge banBadge
	if err := json.Unmarshal([]byte(data), &badge); err != nil {
		return nil, false
	}
	if badge.None {
		return nil, true
	}
	if badge.Record == nil || badge.Record.Expired(time.Now()) {
		return nil, false
	}
	return badge.Record, true
}

// InvalidateBanBadge drops the cached badge after any ban mutation
func (r *RedisClient) InvalidateBanBadge(subject models.Subject) error {
	return r.client.Del(r.ctx, badgeKey(subject)).Err()
}

// AllowAction implements a Redis-backed token-bucket limiter per key (user+action).
// Returns true if the action is allowed, false if rate-limited.
func (r *RedisClient) AllowAction(userID uuid.UUID, action string, rate int, burst int) (bool, error) {
	key := fmt.Sprintf("rl:%s:%s", action, userID.String())
	// Lua script: manage tokens and last timestamp
	script := `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local vals = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(vals[1])
local last = tonumber(vals[2])
if tokens == nil then tokens = burst end
if last == nil then last = now end
local delta = math.max(0, now - last)
local new_tokens = math.min(burst, tokens + (delta * rate / 1000))
if new_tokens >= 1 then
	new_tokens = new_tokens - 1
	redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
	redis.call('PEXPIRE', key, 60000)
	return 1
else
	redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
	redis.call('PEXPIRE', key, 60000)
	return 0
end
`

	now := time.Now().UnixNano() / int64(time.Millisecond)
	res, err := r.client.Eval(r.ctx, script, []string{key}, rate, burst, now).Result()
	if err != nil {
		return false, err
	}
	// Eval returns int64 (1 or 0)
	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case int:
		return v == 1, nil
	default:
		return false, fmt.Errorf("unexpected result from rate limiter: %T %v", res, res)
	}
}
