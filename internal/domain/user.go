package domain

import "time"

// User represents a registered account. PasswordHash never leaves the
// repository and service layers.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Favorite is a reference to a catalog movie saved by a user.
// MovieID is unique within one user's list.
type Favorite struct {
	MovieID int64
	AddedAt time.Time
}

// Watchlist is a named, ordered collection of movie references owned by a user.
type Watchlist struct {
	ID        string
	UserID    int64
	Name      string
	Items     []WatchlistItem
	CreatedAt time.Time
}

// WatchlistItem is a single movie entry within a watchlist.
type WatchlistItem struct {
	MovieID int64
	AddedAt time.Time
}
