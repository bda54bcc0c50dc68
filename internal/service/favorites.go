package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"moviebase/internal/domain"
)

// CatalogClient is the slice of the external catalog the aggregator needs.
type CatalogClient interface {
	Summary(ctx context.Context, id int64) (*domain.MovieSummary, error)
}

// AggregatorConfig bounds the favorites fan-out. Concurrency 0 issues all
// lookups at once (the historical behavior); Timeout 0 leaves individual
// calls without a deadline.
type AggregatorConfig struct {
	Concurrency int
	Timeout     time.Duration
	Logger      *logrus.Logger
}

// FavoritesAggregator resolves a user's favorite list against the external
// catalog. Individual lookup failures are dropped from the result, never
// surfaced: partial failure is success.
type FavoritesAggregator struct {
	users   UserService
	catalog CatalogClient
	cfg     AggregatorConfig
}

func NewFavoritesAggregator(users UserService, catalog CatalogClient, cfg AggregatorConfig) *FavoritesAggregator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &FavoritesAggregator{
		users:   users,
		catalog: catalog,
		cfg:     cfg,
	}
}

// Aggregate fans out one catalog lookup per favorite, waits for all of them
// to settle, and returns the successful subset in original favorites order.
func (a *FavoritesAggregator) Aggregate(ctx context.Context, userID int64) ([]domain.FavoriteMovie, error) {
	favorites, err := a.users.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return []domain.FavoriteMovie{}, nil
	}

	var sem chan struct{}
	if a.cfg.Concurrency > 0 {
		sem = make(chan struct{}, a.cfg.Concurrency)
	}

	// slot per favorite keeps result order independent of completion order
	resolved := make([]*domain.MovieSummary, len(favorites))

	var wg sync.WaitGroup
	for i := range favorites {
		wg.Add(1)
		go func(idx int, fav domain.Favorite) {
			defer wg.Done()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}
			}

			lookupCtx := ctx
			if a.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				lookupCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
				defer cancel()
			}

			summary, err := a.catalog.Summary(lookupCtx, fav.MovieID)
			if err != nil {
				a.cfg.Logger.WithField("movie_id", fav.MovieID).Debugf("favorite lookup dropped: %v", err)
				return
			}
			resolved[idx] = summary
		}(i, favorites[i])
	}
	wg.Wait()

	movies := make([]domain.FavoriteMovie, 0, len(favorites))
	for i, summary := range resolved {
		if summary == nil {
			continue
		}
		movies = append(movies, domain.FavoriteMovie{
			MovieSummary: *summary,
			AddedAt:      favorites[i].AddedAt,
		})
	}
	return movies, nil
}
