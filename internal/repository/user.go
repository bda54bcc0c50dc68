package repository

import (
	"context"

	"moviebase/internal/domain"
)

// UserRepository defines persistence operations for User entities and the
// favorite/watchlist collections they own.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ExistsByEmailOrUsername reports whether any user already holds the
	// given email or username, in one combined lookup.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	AddFavorite(ctx context.Context, userID, movieID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error)

	CreateWatchlist(ctx context.Context, userID int64, list *domain.Watchlist) error
	ListWatchlists(ctx context.Context, userID int64) ([]domain.Watchlist, error)
	AddWatchlistItem(ctx context.Context, userID int64, listID string, movieID int64) error
}
