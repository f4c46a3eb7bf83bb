// Package verify implements the e-mailed one-time code step of admin login.
//
// A session moves Idle -> CodeSent -> Verified, or back to Idle when the code
// expires or the attempts run out. Sessions are keyed by e-mail.
package verify

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/and161185/grader-market/internal/crypto"
	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/mailer"
	"github.com/and161185/grader-market/internal/model"
	"go.uber.org/zap"
)

const (
	CodeLength  = 6
	Window      = 10 * time.Minute
	MaxAttempts = 3

	// ResendCooldown is the minimum age of a code before it can be re-issued.
	ResendCooldown = 30 * time.Second
)

// SessionStore keeps pending verification sessions.
type SessionStore interface {
	// Get returns errs.ErrNoSession when nothing is stored for email.
	Get(ctx context.Context, email string) (model.VerificationSession, error)
	Put(ctx context.Context, s model.VerificationSession) error
	Delete(ctx context.Context, email string) error
	// TakeAttempt atomically increments Attempts and returns the updated
	// session. A session whose MaxAttempts are used up is removed and
	// errs.ErrNoSession returned, so no more than MaxAttempts candidates are
	// ever compared against one code.
	TakeAttempt(ctx context.Context, email string) (model.VerificationSession, error)
}

// Service issues and checks verification codes.
type Service struct {
	store  SessionStore
	sender mailer.Sender
	log    *zap.Logger
	now    func() time.Time
	gen    func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithGenerator overrides the random code source.
func WithGenerator(gen func() (string, error)) Option { return func(s *Service) { s.gen = gen } }

// New constructs a Service.
func New(store SessionStore, sender mailer.Sender, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		sender: sender,
		log:    log.Named("verify"),
		now:    time.Now,
		gen:    func() (string, error) { return crypto.NumericCode(CodeLength) },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// SendCode issues a fresh code for email and e-mails it. Any previous session
// for the same e-mail is replaced. When the provider fails, a *errs.DispatchError
// is returned and the stored session is kept so the caller may resend.
func (s *Service) SendCode(ctx context.Context, email, name string) error {
	code, err := s.gen()
	if err != nil {
		return err
	}
	sess := model.VerificationSession{
		Email:    normEmail(email),
		Name:     name,
		Code:     code,
		IssuedAt: s.now(),
	}
	if err = s.store.Put(ctx, sess); err != nil {
		return err
	}

	err = s.sender.SendVerification(ctx, mailer.Verification{
		ToEmail:  sess.Email,
		UserName: name,
		Code:     code,
		TTL:      Window,
	})
	if err != nil {
		s.log.Warn("code dispatch failed", zap.String("email", sess.Email), zap.Error(err))
		return &errs.DispatchError{Err: err}
	}
	return nil
}

// VerifyCode checks candidate against the stored code. The attempt is taken
// from the store before comparing, so concurrent guesses share the budget.
//
// Errors: errs.ErrNoSession, errs.ErrCodeExpired, *errs.MismatchError.
// Success, expiry and the last allowed mismatch all clear the session.
func (s *Service) VerifyCode(ctx context.Context, email, candidate string) error {
	email = normEmail(email)
	sess, err := s.store.TakeAttempt(ctx, email)
	if err != nil {
		return err
	}

	if s.now().Sub(sess.IssuedAt) > Window {
		if err = s.store.Delete(ctx, email); err != nil {
			return err
		}
		return errs.ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(candidate)), []byte(sess.Code)) == 1 {
		return s.store.Delete(ctx, email)
	}

	remaining := max(MaxAttempts-sess.Attempts, 0)
	if remaining == 0 {
		if err = s.store.Delete(ctx, email); err != nil {
			return err
		}
	}
	s.log.Info("code mismatch", zap.String("email", email), zap.Int("remaining", remaining))
	return &errs.MismatchError{Remaining: remaining}
}

// ResendCode resets the attempt counter by issuing a new code for a pending
// session. Without one it returns errs.ErrNoSession: a fresh code must come
// from SendCode. A code younger than ResendCooldown is not re-issued
// (errs.ErrRateLimited). An empty name reuses the one from the pending session.
func (s *Service) ResendCode(ctx context.Context, email, name string) error {
	prev, err := s.store.Get(ctx, normEmail(email))
	if err != nil {
		return err
	}
	if s.now().Sub(prev.IssuedAt) < ResendCooldown {
		return errs.ErrRateLimited
	}
	if name == "" {
		name = prev.Name
	}
	return s.SendCode(ctx, email, name)
}
