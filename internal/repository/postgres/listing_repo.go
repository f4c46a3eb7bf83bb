package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/grader-market/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ListingRepo implements ListingRepository using PostgreSQL.
type ListingRepo struct{ db *DB }

// NewListingRepo constructs a listing repository.
func NewListingRepo(db *DB) *ListingRepo { return &ListingRepo{db: db} }

// List returns all listings in insertion order. Upserting an existing id keeps
// its position.
func (r *ListingRepo) List(ctx context.Context) ([]model.Listing, error) {
	const q = `
SELECT id, kind, title, brand, model, price, year, part_number, images, description,
       specs, features, safety, is_new, is_sold, listed_at, stock_country
FROM listings
ORDER BY seq ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var (
			l       model.Listing
			kind    string
			country string
			specs   []byte
		)
		if err = rows.Scan(&l.ID, &kind, &l.Title, &l.Brand, &l.Model, &l.Price, &l.Year, &l.PartNumber,
			&l.Images, &l.Description, &specs, &l.Features, &l.Safety, &l.IsNew, &l.IsSold,
			&l.ListedAt, &country); err != nil {
			return nil, err
		}
		l.Kind = model.Kind(kind)
		l.StockCountry = model.StockCountry(country)
		if len(specs) > 0 {
			if err = json.Unmarshal(specs, &l.Specs); err != nil {
				return nil, fmt.Errorf("listing %s specs: %w", l.ID, err)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Upsert inserts the listing or overwrites every column of an existing one.
func (r *ListingRepo) Upsert(ctx context.Context, l model.Listing) error {
	specs, err := json.Marshal(l.Specs)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO listings (id, kind, title, brand, model, price, year, part_number, images, description,
                      specs, features, safety, is_new, is_sold, listed_at, stock_country)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
  kind=EXCLUDED.kind, title=EXCLUDED.title, brand=EXCLUDED.brand, model=EXCLUDED.model,
  price=EXCLUDED.price, year=EXCLUDED.year, part_number=EXCLUDED.part_number,
  images=EXCLUDED.images, description=EXCLUDED.description, specs=EXCLUDED.specs,
  features=EXCLUDED.features, safety=EXCLUDED.safety, is_new=EXCLUDED.is_new,
  is_sold=EXCLUDED.is_sold, listed_at=EXCLUDED.listed_at, stock_country=EXCLUDED.stock_country`
	_, err = r.db.Pool.Exec(ctx, q,
		l.ID, string(l.Kind), l.Title, l.Brand, l.Model, l.Price, l.Year, l.PartNumber,
		nonNil(l.Images), l.Description, specs, nonNil(l.Features), nonNil(l.Safety),
		l.IsNew, l.IsSold, l.ListedAt, string(l.StockCountry))
	return err
}

// Delete removes a listing by id.
func (r *ListingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM listings WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// nonNil keeps NOT NULL text[] columns from receiving SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
