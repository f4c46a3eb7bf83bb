package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gm:verify:"

// Expiry leaves a minute past the validity window so an expired code is
// still found and reported as expired rather than missing.
const redisTTL = Window + time.Minute

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// takeAttemptScript increments attempts server-side so parallel checks of one
// session cannot read the same counter. It answers nil when the session is
// missing or already used up (and removes the latter).
const takeAttemptScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return false end
local s = cjson.decode(raw)
local n = tonumber(s['attempts']) or 0
if n >= tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return false
end
s['attempts'] = n + 1
local out = cjson.encode(s)
redis.call('SET', KEYS[1], out, 'KEEPTTL')
return out
`

// RedisStore keeps sessions as JSON values in Redis.
type RedisStore struct{ c redisClient }

func NewRedisStore(c redisClient) *RedisStore { return &RedisStore{c: c} }

func (s *RedisStore) Get(ctx context.Context, email string) (model.VerificationSession, error) {
	var v model.VerificationSession
	raw, err := s.c.Get(ctx, keyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, errs.ErrNoSession
		}
		return v, fmt.Errorf("redis get session: %w", err)
	}
	if err = json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode session: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Put(ctx context.Context, v model.VerificationSession) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err = s.c.Set(ctx, keyPrefix+v.Email, raw, redisTTL).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	if err := s.c.Del(ctx, keyPrefix+email).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *RedisStore) TakeAttempt(ctx context.Context, email string) (model.VerificationSession, error) {
	var v model.VerificationSession
	raw, err := s.c.Eval(ctx, takeAttemptScript, []string{keyPrefix + email}, MaxAttempts).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, errs.ErrNoSession
		}
		return v, fmt.Errorf("redis take attempt: %w", err)
	}
	if err = json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode session: %w", err)
	}
	return v, nil
}
