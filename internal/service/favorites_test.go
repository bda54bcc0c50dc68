package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"moviebase/internal/domain"
)

// fakeCatalog serves canned summaries and fails configured IDs.
type fakeCatalog struct {
	mu       sync.Mutex
	failing  map[int64]bool
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (f *fakeCatalog) Summary(ctx context.Context, id int64) (*domain.MovieSummary, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	failing := f.failing[id]
	f.mu.Unlock()
	if failing {
		return nil, fmt.Errorf("movie %d: upstream 404", id)
	}
	return &domain.MovieSummary{ID: id, Title: fmt.Sprintf("Movie %d", id)}, nil
}

func newAggregatorFixture(t *testing.T, favorites []int64, catalog *fakeCatalog, cfg AggregatorConfig) *FavoritesAggregator {
	t.Helper()
	svc, _ := newTestUserService(t)
	user, err := svc.Register(context.Background(), "ana", "a@x.com", "secret1")
	require.NoError(t, err)
	for _, id := range favorites {
		require.NoError(t, svc.AddFavorite(context.Background(), user.ID, id))
	}
	agg := NewFavoritesAggregator(svc, catalog, cfg)
	return agg
}

func TestAggregate_DropsFailedLookupsKeepsOrder(t *testing.T) {
	catalog := &fakeCatalog{failing: map[int64]bool{202: true}}
	agg := newAggregatorFixture(t, []int64{101, 202, 303}, catalog, AggregatorConfig{})

	movies, err := agg.Aggregate(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, movies, 2)
	require.Equal(t, int64(101), movies[0].ID)
	require.Equal(t, int64(303), movies[1].ID)
}

func TestAggregate_EmptyFavorites(t *testing.T) {
	catalog := &fakeCatalog{}
	agg := newAggregatorFixture(t, nil, catalog, AggregatorConfig{})

	movies, err := agg.Aggregate(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, movies)
	require.Zero(t, catalog.calls.Load())
}

func TestAggregate_AllFail(t *testing.T) {
	catalog := &fakeCatalog{failing: map[int64]bool{1: true, 2: true}}
	agg := newAggregatorFixture(t, []int64{1, 2}, catalog, AggregatorConfig{})

	movies, err := agg.Aggregate(context.Background(), 1)
	require.NoError(t, err, "partial failure is success, even when total")
	require.Empty(t, movies)
}

func TestAggregate_BoundedConcurrency(t *testing.T) {
	catalog := &fakeCatalog{delay: 20 * time.Millisecond}
	ids := make([]int64, 12)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	agg := newAggregatorFixture(t, ids, catalog, AggregatorConfig{Concurrency: 3})

	movies, err := agg.Aggregate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, movies, 12)
	require.LessOrEqual(t, catalog.maxSeen.Load(), int32(3))
}

func TestAggregate_PerCallTimeout(t *testing.T) {
	catalog := &fakeCatalog{delay: 200 * time.Millisecond}
	agg := newAggregatorFixture(t, []int64{1}, catalog, AggregatorConfig{Timeout: 10 * time.Millisecond})

	movies, err := agg.Aggregate(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, movies, "a timed-out lookup is dropped like any other failure")
}

func TestAggregate_CarriesAddedAt(t *testing.T) {
	catalog := &fakeCatalog{}
	agg := newAggregatorFixture(t, []int64{7}, catalog, AggregatorConfig{})

	movies, err := agg.Aggregate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	require.False(t, movies[0].AddedAt.IsZero())
}
