package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"moviebase/internal/auth"
	"moviebase/internal/domain"
	"moviebase/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// The same value is returned for an unknown email and for a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when registering with a taken email or username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrDuplicateFavorite is returned when a movie is already in the user's favorites.
	ErrDuplicateFavorite = errors.New("movie already in favorites")
	// ErrDuplicateWatchlistItem is returned when a movie is already in the watchlist.
	ErrDuplicateWatchlistItem = errors.New("movie already in watchlist")
	// ErrWatchlistNotFound is returned when a watchlist does not exist or is
	// owned by another user.
	ErrWatchlistNotFound = errors.New("watchlist not found")
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// UserService covers account lifecycle plus the favorite and watchlist
// collections owned by each account.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	AddFavorite(ctx context.Context, userID, movieID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error)

	CreateWatchlist(ctx context.Context, userID int64, name string) (*domain.Watchlist, error)
	ListWatchlists(ctx context.Context, userID int64) ([]domain.Watchlist, error)
	AddWatchlistItem(ctx context.Context, userID int64, listID string, movieID int64) error
}

type userService struct {
	users repository.UserRepository

	// dummyHash keeps the compare cost identical whether or not the email
	// exists, so Authenticate does not reveal registered emails by timing.
	dummyHash string
}

func NewUserService(users repository.UserRepository) (UserService, error) {
	dummy, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &userService{users: users, dummyHash: dummy}, nil
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if username == "" {
		return nil, errors.New("username is required")
	}
	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.CheckPassword(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) AddFavorite(ctx context.Context, userID, movieID int64) error {
	if err := s.users.AddFavorite(ctx, userID, movieID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateFavorite
		}
		return err
	}
	return nil
}

func (s *userService) ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	return s.users.ListFavorites(ctx, userID)
}

func (s *userService) CreateWatchlist(ctx context.Context, userID int64, name string) (*domain.Watchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("watchlist name is required")
	}

	list := &domain.Watchlist{
		ID:   uuid.NewString(),
		Name: name,
	}
	if err := s.users.CreateWatchlist(ctx, userID, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *userService) ListWatchlists(ctx context.Context, userID int64) ([]domain.Watchlist, error) {
	return s.users.ListWatchlists(ctx, userID)
}

func (s *userService) AddWatchlistItem(ctx context.Context, userID int64, listID string, movieID int64) error {
	if err := s.users.AddWatchlistItem(ctx, userID, listID, movieID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrWatchlistNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return ErrDuplicateWatchlistItem
		}
		return err
	}
	return nil
}

// sanitizeUser strips the password hash before a user leaves the service layer.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
