// Package memory provides map-backed repositories for development runs and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Listings is an in-memory ListingRepository.
type Listings struct {
	mu    sync.Mutex
	items []model.Listing
}

// NewListings returns a repository pre-filled with seed.
func NewListings(seed ...model.Listing) *Listings {
	return &Listings{items: slices.Clone(seed)}
}

func (r *Listings) List(context.Context) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items), nil
}

func (r *Listings) Upsert(_ context.Context, l model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == l.ID {
			r.items[i] = l
			return nil
		}
	}
	r.items = append(r.items, l)
	return nil
}

func (r *Listings) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = slices.DeleteFunc(r.items, func(l model.Listing) bool { return l.ID == id })
	return nil
}

// Favorites is an in-memory FavoriteRepository.
type Favorites struct {
	mu  sync.Mutex
	set map[string][]uuid.UUID
}

func NewFavorites() *Favorites { return &Favorites{set: map[string][]uuid.UUID{}} }

func (r *Favorites) All(context.Context) (map[string][]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]uuid.UUID, len(r.set))
	for k, v := range r.set {
		out[k] = slices.Clone(v)
	}
	return out, nil
}

func (r *Favorites) Add(_ context.Context, owner string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.set[owner], id) {
		r.set[owner] = append(r.set[owner], id)
	}
	return nil
}

func (r *Favorites) Remove(_ context.Context, owner string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[owner] = slices.DeleteFunc(r.set[owner], func(v uuid.UUID) bool { return v == id })
	if len(r.set[owner]) == 0 {
		delete(r.set, owner)
	}
	return nil
}

// Admins is an in-memory AdminRepository.
type Admins struct {
	mu      sync.Mutex
	byEmail map[string]model.Admin
}

func NewAdmins() *Admins { return &Admins{byEmail: map[string]model.Admin{}} }

func (r *Admins) Create(_ context.Context, a *model.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := strings.ToLower(strings.TrimSpace(a.Email))
	if _, ok := r.byEmail[k]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *a
	cp.Email = k
	r.byEmail[k] = cp
	return nil
}

func (r *Admins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}
