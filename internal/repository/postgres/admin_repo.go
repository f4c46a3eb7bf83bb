package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/jackc/pgx/v5"
)

// AdminRepo implements AdminRepository using PostgreSQL.
type AdminRepo struct{ db *DB }

// NewAdminRepo constructs an admin repository.
func NewAdminRepo(db *DB) *AdminRepo { return &AdminRepo{db: db} }

// Create inserts a new admin row. E-mails are stored lower-cased.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	const q = `
INSERT INTO admins (id, email, name, pwd_hash, salt)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, strings.ToLower(a.Email), a.Name, a.PwdHash, a.Salt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByEmail selects an admin by e-mail.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	const q = `
SELECT id, email, name, pwd_hash, salt, created_at
FROM admins WHERE email=$1`
	row := r.db.Pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email)))
	var a model.Admin
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PwdHash, &a.Salt, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
