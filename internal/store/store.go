package store

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/and161185/grader-market/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Store is the application state container. Mutations are written through to
// the repositories first and only then become visible to readers.
type Store struct {
	listings  repository.ListingRepository
	favorites repository.FavoriteRepository
	log       *zap.Logger
	latency   time.Duration

	mu    sync.RWMutex // guards state; writers hold it across the repository call
	state State
}

// Option configures a Store.
type Option func(*Store)

// WithLatency delays every mutation by d, mimicking a remote backend.
func WithLatency(d time.Duration) Option { return func(s *Store) { s.latency = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New constructs an empty Store. Call Load to fill it from the repositories.
func New(listings repository.ListingRepository, favorites repository.FavoriteRepository, opts ...Option) *Store {
	s := &Store{
		listings:  listings,
		favorites: favorites,
		log:       zap.NewNop(),
		state:     State{Favorites: map[string]FavoriteSet{}},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the in-memory state with the repositories' content.
func (s *Store) Load(ctx context.Context) error {
	ls, err := s.listings.List(ctx)
	if err != nil {
		return err
	}
	all, err := s.favorites.All(ctx)
	if err != nil {
		return err
	}
	favs := make(map[string]FavoriteSet, len(all))
	for owner, ids := range all {
		favs[owner] = ids
	}

	s.mu.Lock()
	s.state = State{Listings: ls, Favorites: favs}
	s.mu.Unlock()
	s.log.Info("store loaded", zap.Int("listings", len(ls)), zap.Int("favoriteOwners", len(favs)))
	return nil
}

// Snapshot returns the current state. Callers must not modify it.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Get returns the listing with id.
func (s *Store) Get(id uuid.UUID) (model.Listing, bool) {
	return s.Snapshot().Listing(id)
}

// Add inserts or replaces a listing.
func (s *Store) Add(ctx context.Context, l model.Listing) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listings.Upsert(ctx, l); err != nil {
		return err
	}
	s.state = AddListing(s.state, l)
	return nil
}

// Update replaces an existing listing; ErrNotFound when id is unknown.
func (s *Store) Update(ctx context.Context, l model.Listing) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := UpdateListing(s.state, l)
	if err != nil {
		return err
	}
	if err = s.listings.Upsert(ctx, l); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Mutate applies fn to the current copy of listing id and stores the result.
// The read, fn and the write happen under one lock, so concurrent writers
// cannot be lost. fn must not call back into the Store.
func (s *Store) Mutate(ctx context.Context, id uuid.UUID, fn func(*model.Listing)) (model.Listing, error) {
	if err := s.delay(ctx); err != nil {
		return model.Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.state.Listing(id)
	if !ok {
		return model.Listing{}, errs.ErrNotFound
	}
	fn(&l)
	l.ID = id
	if err := s.listings.Upsert(ctx, l); err != nil {
		return model.Listing{}, err
	}
	s.state = AddListing(s.state, l)
	return l, nil
}

// Delete removes a listing. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}
	s.state = DeleteListing(s.state, id)
	return nil
}

// ToggleFavorite flips id in owner's favorites and reports the new membership.
func (s *Store) ToggleFavorite(ctx context.Context, owner string, id uuid.UUID) (bool, error) {
	if err := s.delay(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, added := ToggleFavorite(s.state, owner, id)
	var err error
	if added {
		err = s.favorites.Add(ctx, owner, id)
	} else {
		err = s.favorites.Remove(ctx, owner, id)
	}
	if err != nil {
		return false, err
	}
	s.state = next
	return added, nil
}

func (s *Store) delay(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
