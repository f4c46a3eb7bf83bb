package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config tunes the sliding window and lockout.
type Config struct {
	Window   time.Duration // failures older than this restart the count
	MaxFails int
	BlockFor time.Duration
}

// PG is a PostgreSQL-backed limiter.
type PG struct {
	q   Querier
	cfg Config
	now func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, cfg Config) *PG {
	return &PG{q: q, cfg: cfg, now: time.Now}
}

// HashIP hashes a client address so raw IPs are never stored.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

func key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_limiter WHERE email=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, key(email), ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if wait := blockedUntil.Sub(l.now()); wait > 0 {
			return false, wait, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (email, ip).
func (l *PG) Success(ctx context.Context, email string, ipHash []byte) error {
	const q = `DELETE FROM login_limiter WHERE email=$1 AND ip_hash=$2`
	_, err := l.q.Exec(ctx, q, key(email), ipHash)
	return err
}

// Failure records a failed attempt and blocks the pair once MaxFails is reached.
func (l *PG) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO login_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (email, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN now() - login_limiter.updated_at > $3::interval THEN 1 ELSE login_limiter.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, key(email), ipHash, l.cfg.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.cfg.MaxFails {
		return false, 0, nil
	}
	const upd = `UPDATE login_limiter SET blocked_until=$3, fail_count=0 WHERE email=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, upd, key(email), ipHash, l.now().Add(l.cfg.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.cfg.BlockFor, nil
}
