package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
	"github.com/and161185/grader-market/internal/repository/memory"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingListings struct{ *memory.Listings }

func (failingListings) Upsert(context.Context, model.Listing) error { return errors.New("db down") }

func newStore(t *testing.T, seed ...model.Listing) (*Store, *memory.Listings, *memory.Favorites) {
	t.Helper()
	lr, fr := memory.NewListings(seed...), memory.NewFavorites()
	s := New(lr, fr, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, s.Load(context.Background()))
	return s, lr, fr
}

func TestStore_LoadAndGet(t *testing.T) {
	a := listing("a")
	s, _, _ := newStore(t, a)
	got, ok := s.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, "a", got.Title)
	_, ok = s.Get(uuid.Must(uuid.NewV4()))
	require.False(t, ok)
}

func TestStore_MutationsWriteThroughAndAreVisible(t *testing.T) {
	ctx := context.Background()
	s, lr, fr := newStore(t)
	a := listing("a")

	require.NoError(t, s.Add(ctx, a))
	_, ok := s.Get(a.ID)
	require.True(t, ok)
	persisted, _ := lr.List(ctx)
	require.Len(t, persisted, 1)

	a.Title = "renamed"
	require.NoError(t, s.Update(ctx, a))
	got, _ := s.Get(a.ID)
	require.Equal(t, "renamed", got.Title)

	added, err := s.ToggleFavorite(ctx, "c1", a.ID)
	require.NoError(t, err)
	require.True(t, added)
	all, _ := fr.All(ctx)
	require.Equal(t, []uuid.UUID{a.ID}, all["c1"])

	require.NoError(t, s.Delete(ctx, a.ID))
	require.NoError(t, s.Delete(ctx, a.ID))
	require.Empty(t, s.Snapshot().Listings)
	require.Empty(t, s.Snapshot().FavoriteListings("c1"))
}

func TestStore_UpdateMissing(t *testing.T) {
	s, _, _ := newStore(t)
	require.ErrorIs(t, s.Update(context.Background(), listing("x")), errs.ErrNotFound)
}

func TestStore_RepoFailureLeavesStateUntouched(t *testing.T) {
	lr := failingListings{memory.NewListings()}
	s := New(lr, memory.NewFavorites())
	require.NoError(t, s.Load(context.Background()))

	require.Error(t, s.Add(context.Background(), listing("a")))
	require.Empty(t, s.Snapshot().Listings)
}

func TestStore_SnapshotIsStable(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, listing("a"))
	snap := s.Snapshot()
	require.NoError(t, s.Add(ctx, listing("b")))
	require.Len(t, snap.Listings, 1)
	require.Len(t, s.Snapshot().Listings, 2)
}

func TestStore_LatencyHonorsCancel(t *testing.T) {
	lr, fr := memory.NewListings(), memory.NewFavorites()
	s := New(lr, fr, WithLatency(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Add(ctx, listing("a"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, s.Snapshot().Listings)
}

func TestStore_LatencyDelays(t *testing.T) {
	s := New(memory.NewListings(), memory.NewFavorites(), WithLatency(30*time.Millisecond))
	start := time.Now()
	require.NoError(t, s.Add(context.Background(), listing("a")))
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStore_Mutate(t *testing.T) {
	ctx := context.Background()
	a := listing("a")
	a.Images = nil
	s, lr, _ := newStore(t, a)

	_, err := s.Mutate(ctx, uuid.Must(uuid.NewV4()), func(*model.Listing) {})
	require.ErrorIs(t, err, errs.ErrNotFound)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Mutate(ctx, a.ID, func(l *model.Listing) {
				l.Images = append(slices.Clone(l.Images), fmt.Sprintf("/img/%d.jpg", i))
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := s.Get(a.ID)
	require.Len(t, got.Images, n)
	persisted, _ := lr.List(ctx)
	require.Len(t, persisted[0].Images, n)

	got, err = s.Mutate(ctx, a.ID, func(l *model.Listing) { l.ID = uuid.Must(uuid.NewV4()) })
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Len(t, s.Snapshot().Listings, 1)
}
