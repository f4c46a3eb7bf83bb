// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/grader-market/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ListingRepository persists the catalog.
type ListingRepository interface {
	// List returns every listing in catalog order (oldest first).
	List(ctx context.Context) ([]model.Listing, error)
	// Upsert inserts a listing or replaces the one with the same ID.
	Upsert(ctx context.Context, l model.Listing) error
	// Delete removes a listing; deleting a missing ID is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// FavoriteRepository persists favorite sets keyed by client session.
type FavoriteRepository interface {
	// All returns the favorites of every owner.
	All(ctx context.Context) (map[string][]uuid.UUID, error)
	// Add marks listingID as favorite for owner; adding twice is a no-op.
	Add(ctx context.Context, owner string, listingID uuid.UUID) error
	// Remove unmarks listingID for owner; removing a missing pair is a no-op.
	Remove(ctx context.Context, owner string, listingID uuid.UUID) error
}

// AdminRepository provides access to dashboard accounts.
type AdminRepository interface {
	// Create inserts a new admin.
	Create(ctx context.Context, a *model.Admin) error
	// GetByEmail loads an admin by e-mail (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}
