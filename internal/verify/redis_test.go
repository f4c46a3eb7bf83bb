package verify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRedis struct {
	kv      map[string]string
	ttl     map[string]time.Duration
	getErr  error
	evalErr error
	scripts []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{kv: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.kv[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.kv[key] = string(value.([]byte))
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.kv[k]; ok {
			delete(f.kv, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Eval mirrors takeAttemptScript on the in-memory map.
func (f *fakeRedis) Eval(_ context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.scripts = append(f.scripts, script)
	if f.evalErr != nil {
		return redis.NewCmdResult(nil, f.evalErr)
	}
	raw, ok := f.kv[keys[0]]
	if !ok {
		return redis.NewCmdResult(nil, redis.Nil)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return redis.NewCmdResult(nil, err)
	}
	n, _ := m["attempts"].(float64)
	if int(n) >= args[0].(int) {
		delete(f.kv, keys[0])
		return redis.NewCmdResult(nil, redis.Nil)
	}
	m["attempts"] = n + 1
	b, _ := json.Marshal(m)
	f.kv[keys[0]] = string(b)
	return redis.NewCmdResult(string(b), nil)
}

func TestRedisStore_TakeAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	s := NewRedisStore(f)

	_, err := s.TakeAttempt(ctx, "a@b.com")
	require.ErrorIs(t, err, errs.ErrNoSession)

	require.NoError(t, s.Put(ctx, model.VerificationSession{Email: "a@b.com", Code: "123456", IssuedAt: time.Unix(1700000000, 0).UTC()}))
	for want := 1; want <= MaxAttempts; want++ {
		sess, err := s.TakeAttempt(ctx, "a@b.com")
		require.NoError(t, err)
		require.Equal(t, want, sess.Attempts)
		require.Equal(t, "123456", sess.Code)
	}
	_, err = s.TakeAttempt(ctx, "a@b.com")
	require.ErrorIs(t, err, errs.ErrNoSession)
	require.NotContains(t, f.kv, "gm:verify:a@b.com")
	require.Equal(t, takeAttemptScript, f.scripts[0])

	f.evalErr = errors.New("NOSCRIPT")
	_, err = s.TakeAttempt(ctx, "a@b.com")
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNoSession)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	s := NewRedisStore(f)

	in := model.VerificationSession{Email: "a@b.com", Code: "123456", IssuedAt: time.Unix(1700000000, 0).UTC(), Attempts: 1}
	require.NoError(t, s.Put(ctx, in))
	require.Equal(t, redisTTL, f.ttl["gm:verify:a@b.com"])

	out, err := s.Get(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, in, out)

	require.NoError(t, s.Delete(ctx, "a@b.com"))
	_, err = s.Get(ctx, "a@b.com")
	require.ErrorIs(t, err, errs.ErrNoSession)
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	s := NewRedisStore(f)

	f.kv["gm:verify:bad@b.com"] = "{"
	_, err := s.Get(ctx, "bad@b.com")
	require.Error(t, err)

	f.getErr = errors.New("i/o timeout")
	_, err = s.Get(ctx, "a@b.com")
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNoSession)
}

func TestService_OverRedisStore(t *testing.T) {
	ctx := context.Background()
	snd := &fakeSender{}
	c := &clock{t: time.Now().UTC()}
	s := New(NewRedisStore(newFakeRedis()), snd, zap.NewNop(), WithClock(c.now), WithGenerator(fixedCodes("123456")))

	require.NoError(t, s.SendCode(ctx, "a@b.com", ""))
	require.ErrorIs(t, s.VerifyCode(ctx, "a@b.com", "000000"), errs.ErrCodeMismatch)
	require.NoError(t, s.VerifyCode(ctx, "a@b.com", "123456"))
}
