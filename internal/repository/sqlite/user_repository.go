package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moviebase/internal/domain"
	"moviebase/internal/repository"
)

const createUserTables = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS favorites (
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	movie_id INTEGER NOT NULL,
	added_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, movie_id)
);

CREATE TABLE IF NOT EXISTS watchlists (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS watchlist_items (
	watchlist_id TEXT NOT NULL REFERENCES watchlists(id) ON DELETE CASCADE,
	movie_id INTEGER NOT NULL,
	added_at DATETIME NOT NULL,
	PRIMARY KEY (watchlist_id, movie_id)
);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUserTables); err != nil {
		return fmt.Errorf("create user tables: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at, updated_at
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at, updated_at
FROM users
WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM users WHERE email = ? OR username = ?`,
		email, username,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// AddFavorite relies on the (user_id, movie_id) primary key so the duplicate
// check and the insert are a single atomic statement.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, movieID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO favorites (user_id, movie_id, added_at)
VALUES (?, ?, ?)`,
		userID, movieID, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (r *UserRepository) ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT movie_id, added_at
FROM favorites
WHERE user_id = ?
ORDER BY added_at, movie_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []domain.Favorite
	for rows.Next() {
		var fav domain.Favorite
		if err := rows.Scan(&fav.MovieID, &fav.AddedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return favorites, nil
}

func (r *UserRepository) CreateWatchlist(ctx context.Context, userID int64, list *domain.Watchlist) error {
	list.UserID = userID
	list.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO watchlists (id, user_id, name, created_at)
VALUES (?, ?, ?, ?)`,
		list.ID, userID, list.Name, list.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (r *UserRepository) ListWatchlists(ctx context.Context, userID int64) ([]domain.Watchlist, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, name, created_at
FROM watchlists
WHERE user_id = ?
ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query watchlists: %w", err)
	}
	defer rows.Close()

	var lists []domain.Watchlist
	for rows.Next() {
		var list domain.Watchlist
		if err := rows.Scan(&list.ID, &list.UserID, &list.Name, &list.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlists: %w", err)
	}

	for i := range lists {
		items, err := r.listWatchlistItems(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Items = items
	}
	return lists, nil
}

func (r *UserRepository) AddWatchlistItem(ctx context.Context, userID int64, listID string, movieID int64) error {
	var owner int64
	err := r.db.QueryRowContext(ctx, `
SELECT user_id FROM watchlists WHERE id = ?`,
		listID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup watchlist: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO watchlist_items (watchlist_id, movie_id, added_at)
VALUES (?, ?, ?)`,
		listID, movieID, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert watchlist item: %w", err)
	}
	return nil
}

func (r *UserRepository) listWatchlistItems(ctx context.Context, listID string) ([]domain.WatchlistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT movie_id, added_at
FROM watchlist_items
WHERE watchlist_id = ?
ORDER BY added_at, movie_id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("query watchlist items: %w", err)
	}
	defer rows.Close()

	var items []domain.WatchlistItem
	for rows.Next() {
		var item domain.WatchlistItem
		if err := rows.Scan(&item.MovieID, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist items: %w", err)
	}
	return items, nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
