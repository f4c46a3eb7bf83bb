package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// FavoriteRepo implements FavoriteRepository using PostgreSQL.
type FavoriteRepo struct{ db *DB }

// NewFavoriteRepo constructs a favorites repository.
func NewFavoriteRepo(db *DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// All loads every (owner, listing) pair grouped by owner, in insertion order.
func (r *FavoriteRepo) All(ctx context.Context) (map[string][]uuid.UUID, error) {
	const q = `SELECT owner, listing_id FROM favorites ORDER BY owner ASC, created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]uuid.UUID{}
	for rows.Next() {
		var (
			owner string
			id    uuid.UUID
		)
		if err = rows.Scan(&owner, &id); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], id)
	}
	return out, rows.Err()
}

// Add inserts the pair unless it already exists.
func (r *FavoriteRepo) Add(ctx context.Context, owner string, listingID uuid.UUID) error {
	const q = `INSERT INTO favorites (owner, listing_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, owner, listingID)
	return err
}

// Remove deletes the pair if present.
func (r *FavoriteRepo) Remove(ctx context.Context, owner string, listingID uuid.UUID) error {
	const q = `DELETE FROM favorites WHERE owner=$1 AND listing_id=$2`
	_, err := r.db.Pool.Exec(ctx, q, owner, listingID)
	return err
}
