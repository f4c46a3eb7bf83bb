package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	rowErr       error
	blockedUntil time.Time
	fails        int

	execSQL  []string
	execArgs [][]any
	execErr  error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return fakeRow{scan: func(dest ...any) error {
			if f.rowErr != nil {
				return f.rowErr
			}
			*(dest[0].(*time.Time)) = f.blockedUntil
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return fakeRow{scan: func(dest ...any) error {
			if f.rowErr != nil {
				return f.rowErr
			}
			*(dest[0].(*int)) = f.fails
			return nil
		}}
	}
	return fakeRow{scan: func(...any) error { return errors.New("unexpected query") }}
}

var now0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPG(f *fakeQuerier) *PG {
	l := NewPG(f, Config{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute})
	l.now = func() time.Time { return now0 }
	return l
}

func TestAllow(t *testing.T) {
	cases := []struct {
		name   string
		f      *fakeQuerier
		ok     bool
		wait   time.Duration
		hasErr bool
	}{
		{"no row", &fakeQuerier{rowErr: pgx.ErrNoRows}, true, 0, false},
		{"blocked", &fakeQuerier{blockedUntil: now0.Add(3 * time.Minute)}, false, 3 * time.Minute, false},
		{"block expired", &fakeQuerier{blockedUntil: now0.Add(-time.Second)}, true, 0, false},
		{"epoch", &fakeQuerier{}, true, 0, false},
		{"db error", &fakeQuerier{rowErr: errors.New("boom")}, false, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, wait, err := newPG(tc.f).Allow(context.Background(), "a@b.c", []byte("h"))
			if (err != nil) != tc.hasErr || ok != tc.ok || wait != tc.wait {
				t.Fatalf("ok=%v wait=%v err=%v", ok, wait, err)
			}
		})
	}
}

func TestSuccess_ClearsRow(t *testing.T) {
	f := &fakeQuerier{}
	if err := newPG(f).Success(context.Background(), " Admin@Example.com", []byte("h")); err != nil {
		t.Fatalf("success: %v", err)
	}
	if len(f.execSQL) != 1 || !strings.Contains(f.execSQL[0], "DELETE FROM login_limiter") {
		t.Fatalf("unexpected exec: %v", f.execSQL)
	}
	if f.execArgs[0][0] != "admin@example.com" {
		t.Fatalf("email not normalized: %v", f.execArgs[0][0])
	}
}

func TestSuccess_ExecError(t *testing.T) {
	f := &fakeQuerier{execErr: errors.New("exec fail")}
	if err := newPG(f).Success(context.Background(), "u", []byte("h")); err == nil {
		t.Fatalf("want exec error")
	}
}

func TestFailure_BelowThreshold(t *testing.T) {
	f := &fakeQuerier{fails: 4}
	blocked, wait, err := newPG(f).Failure(context.Background(), "u", []byte("h"))
	if err != nil || blocked || wait != 0 || len(f.execSQL) != 0 {
		t.Fatalf("blocked=%v wait=%v err=%v exec=%v", blocked, wait, err, f.execSQL)
	}
}

func TestFailure_BlocksAtThreshold(t *testing.T) {
	f := &fakeQuerier{fails: 5}
	blocked, wait, err := newPG(f).Failure(context.Background(), "u", []byte("h"))
	if err != nil || !blocked || wait != 10*time.Minute {
		t.Fatalf("blocked=%v wait=%v err=%v", blocked, wait, err)
	}
	if !strings.Contains(f.execSQL[0], "UPDATE login_limiter SET blocked_until") {
		t.Fatalf("exec=%s", f.execSQL[0])
	}
	if got := f.execArgs[0][2].(time.Time); !got.Equal(now0.Add(10 * time.Minute)) {
		t.Fatalf("blocked_until=%v", got)
	}
}

func TestFailure_ReturningError(t *testing.T) {
	f := &fakeQuerier{rowErr: errors.New("query error")}
	if _, _, err := newPG(f).Failure(context.Background(), "u", []byte("h")); err == nil {
		t.Fatalf("want error")
	}
}

func TestHashIP(t *testing.T) {
	a, b, c := HashIP("10.0.0.1"), HashIP("10.0.0.1"), HashIP("10.0.0.2")
	if string(a) != string(b) || string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch/len: %d", len(a))
	}
}

func TestNop(t *testing.T) {
	var l Limiter = Nop{}
	ok, _, _ := l.Allow(context.Background(), "u", nil)
	blocked, _, _ := l.Failure(context.Background(), "u", nil)
	if !ok || blocked || l.Success(context.Background(), "u", nil) != nil {
		t.Fatalf("nop limiter must never block")
	}
}
