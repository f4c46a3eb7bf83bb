// Package service contains the admin authentication and listing services.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgcrypto "github.com/and161185/grader-market/internal/crypto"
	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/limiter"
	"github.com/and161185/grader-market/internal/metrics"
	"github.com/and161185/grader-market/internal/model"
	"github.com/and161185/grader-market/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const roleAdmin = "admin"

// AuthService is the two-step admin login: password, then an e-mailed code.
type AuthService interface {
	// EnsureAdmin creates the account unless one with the e-mail exists.
	EnsureAdmin(ctx context.Context, email, name, password string) error
	// Login checks the password under rate limiting and e-mails a code.
	Login(ctx context.Context, email, password, ip string) error
	// Confirm checks the code and issues an access token.
	Confirm(ctx context.Context, email, code string) (model.Tokens, model.Admin, error)
	// Resend re-issues the code of a pending login.
	Resend(ctx context.Context, email string) error
	// ParseToken validates an access token and returns the admin id.
	ParseToken(token string) (uuid.UUID, error)
}

// Codes is the verification step. Implemented by *verify.Service.
type Codes interface {
	SendCode(ctx context.Context, email, name string) error
	VerifyCode(ctx context.Context, email, candidate string) error
	ResendCode(ctx context.Context, email, name string) error
}

type AuthServiceImpl struct {
	admins    repository.AdminRepository
	codes     Codes
	lim       limiter.Limiter
	signKey   []byte
	accessTTL time.Duration
	now       func() time.Time
	m         *metrics.Metrics
	log       *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies. m may be nil.
func NewAuthService(admins repository.AdminRepository, codes Codes, lim limiter.Limiter,
	signKey []byte, accessTTL time.Duration, m *metrics.Metrics, log *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		admins:    admins,
		codes:     codes,
		lim:       lim,
		signKey:   signKey,
		accessTTL: accessTTL,
		now:       time.Now,
		m:         m,
		log:       log.Named("auth"),
	}
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// EnsureAdmin creates a bootstrap admin with a salted Argon2id hash.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, email, name, password string) error {
	email = normEmail(email)
	if email == "" || password == "" {
		return errors.New("validation: empty admin email/password")
	}
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	hash, salt, err := pkgcrypto.NewPassword(password)
	if err != nil {
		return err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	err = s.admins.Create(ctx, &model.Admin{ID: id, Email: email, Name: name, PwdHash: hash, Salt: salt})
	if errors.Is(err, errs.ErrAlreadyExists) {
		return nil
	}
	if err == nil {
		s.log.Info("admin account created", zap.String("email", email))
	}
	return err
}

// Login authenticates with rate limiting by (email, ip) and dispatches a code.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) error {
	email = normEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return err
	}
	if !allowed {
		return errs.ErrRateLimited
	}

	a, err := s.admins.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		pkgcrypto.BurnVerify([]byte(password))
		return s.failed(ctx, email, ipHash)
	case err != nil:
		return err
	case !pkgcrypto.VerifyPassword([]byte(password), a.Salt, a.PwdHash):
		return s.failed(ctx, email, ipHash)
	}

	// best-effort reset
	_ = s.lim.Success(ctx, email, ipHash)

	err = s.codes.SendCode(ctx, email, a.Name)
	s.countSend(err)
	return err
}

// failed records a bad password and hides whether the account exists.
func (s *AuthServiceImpl) failed(ctx context.Context, email string, ipHash []byte) error {
	if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
		s.log.Warn("login blocked", zap.String("email", email))
		return errs.ErrRateLimited
	}
	return errs.ErrUnauthorized
}

// Confirm verifies the e-mailed code and issues an access token.
func (s *AuthServiceImpl) Confirm(ctx context.Context, email, code string) (model.Tokens, model.Admin, error) {
	email = normEmail(email)
	err := s.codes.VerifyCode(ctx, email, code)
	s.countCheck(err)
	if err != nil {
		return model.Tokens{}, model.Admin{}, err
	}

	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, model.Admin{}, errs.ErrUnauthorized
		}
		return model.Tokens{}, model.Admin{}, err
	}

	access, exp, err := s.issueAccessToken(a.ID)
	if err != nil {
		return model.Tokens{}, model.Admin{}, err
	}
	s.log.Info("admin signed in", zap.String("adminID", a.ID.String()))
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *a, nil
}

// Resend re-issues the code of a pending login. Requests inside the resend
// cooldown fail with errs.ErrRateLimited and send nothing.
func (s *AuthServiceImpl) Resend(ctx context.Context, email string) error {
	err := s.codes.ResendCode(ctx, normEmail(email), "")
	if !errors.Is(err, errs.ErrNoSession) && !errors.Is(err, errs.ErrRateLimited) {
		s.countSend(err)
	}
	return err
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(adminID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := adminClaims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// ParseToken validates signature, method, expiry (30s leeway) and role.
func (s *AuthServiceImpl) ParseToken(token string) (uuid.UUID, error) {
	var claims adminClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Role != roleAdmin {
		return uuid.Nil, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

func (s *AuthServiceImpl) countSend(err error) {
	if s.m == nil {
		return
	}
	res := "ok"
	var de *errs.DispatchError
	if errors.As(err, &de) {
		res = "dispatch_error"
	} else if err != nil {
		res = "error"
	}
	s.m.CodesSent.WithLabelValues(res).Inc()
}

func (s *AuthServiceImpl) countCheck(err error) {
	if s.m == nil {
		return
	}
	res := "verified"
	switch {
	case errors.Is(err, errs.ErrCodeMismatch):
		res = "mismatch"
	case errors.Is(err, errs.ErrCodeExpired):
		res = "expired"
	case errors.Is(err, errs.ErrNoSession):
		res = "no_session"
	case err != nil:
		res = "error"
	}
	s.m.CodeChecks.WithLabelValues(res).Inc()
}
