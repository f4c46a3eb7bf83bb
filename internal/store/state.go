// Package store holds the canonical listing collection and favorite sets.
//
// State values are immutable: reducers return a new State and never modify
// the one they were given, so a snapshot handed to a reader stays valid
// after later mutations.
package store

import (
	"slices"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FavoriteSet is an ordered set of listing ids.
type FavoriteSet []uuid.UUID

// Has reports whether id is in the set.
func (f FavoriteSet) Has(id uuid.UUID) bool { return slices.Contains(f, id) }

// State is the listing collection plus favorite sets keyed by client session.
type State struct {
	Listings  []model.Listing
	Favorites map[string]FavoriteSet
}

// Listing finds a listing by id.
func (s State) Listing(id uuid.UUID) (model.Listing, bool) {
	i := s.index(id)
	if i < 0 {
		return model.Listing{}, false
	}
	return s.Listings[i], true
}

// FavoriteListings resolves owner's favorites in the order they were added.
// Ids of deleted listings are skipped.
func (s State) FavoriteListings(owner string) []model.Listing {
	var out []model.Listing
	for _, id := range s.Favorites[owner] {
		if l, ok := s.Listing(id); ok {
			out = append(out, l)
		}
	}
	return out
}

func (s State) index(id uuid.UUID) int {
	return slices.IndexFunc(s.Listings, func(l model.Listing) bool { return l.ID == id })
}

// AddListing inserts l, or replaces the listing with the same id in place.
func AddListing(s State, l model.Listing) State {
	out := slices.Clone(s.Listings)
	if i := s.index(l.ID); i >= 0 {
		out[i] = l
	} else {
		out = append(out, l)
	}
	return State{Listings: out, Favorites: s.Favorites}
}

// UpdateListing replaces an existing listing. Unknown ids yield ErrNotFound.
func UpdateListing(s State, l model.Listing) (State, error) {
	if s.index(l.ID) < 0 {
		return s, errs.ErrNotFound
	}
	return AddListing(s, l), nil
}

// DeleteListing removes the listing with id. Missing ids are a no-op.
func DeleteListing(s State, id uuid.UUID) State {
	if s.index(id) < 0 {
		return s
	}
	out := slices.DeleteFunc(slices.Clone(s.Listings), func(l model.Listing) bool { return l.ID == id })
	return State{Listings: out, Favorites: s.Favorites}
}

// ToggleFavorite adds id to owner's set or removes it if present.
// The second result reports whether id is a favorite afterwards.
func ToggleFavorite(s State, owner string, id uuid.UUID) (State, bool) {
	favs := make(map[string]FavoriteSet, len(s.Favorites)+1)
	for k, v := range s.Favorites {
		favs[k] = v
	}
	cur := s.Favorites[owner]
	added := !cur.Has(id)
	if added {
		favs[owner] = append(slices.Clone(cur), id)
	} else {
		next := slices.DeleteFunc(slices.Clone(cur), func(v uuid.UUID) bool { return v == id })
		if len(next) == 0 {
			delete(favs, owner)
		} else {
			favs[owner] = next
		}
	}
	return State{Listings: s.Listings, Favorites: favs}, added
}
