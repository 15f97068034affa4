package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AccountStore persists users and their search and download history
type AccountStore interface {
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateProfile verifies oldPassword, then renames the user and replaces
	// the password hash in one transaction. An empty username or newPassword
	// leaves that field as it is. Nothing is written when any step fails.
	UpdateProfile(ctx context.Context, id, oldPassword, username, newPassword string) (*models.User, error)

	AddSearch(ctx context.Context, userID, query string) error
	AddDownload(ctx context.Context, userID, item string) error
	SearchHistory(ctx context.Context, userID string) ([]string, error)
	DownloadHistory(ctx context.Context, userID string) ([]string, error)
}

// LoadProfile assembles the public profile of a user
func LoadProfile(ctx context.Context, store AccountStore, user *models.User) (*models.Profile, error) {
	searches, err := store.SearchHistory(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	downloads, err := store.DownloadHistory(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.Profile{
		Username:        user.Username,
		Email:           user.Email,
		SearchHistory:   searches,
		DownloadHistory: downloads,
	}, nil
}

// prepareProfileUpdate checks oldPassword and hashes newPassword before any
// write. The returned hash is empty when newPassword is.
func prepareProfileUpdate(ctx context.Context, store AccountStore, id, oldPassword, newPassword string) (*models.User, string, error) {
	user, err := store.GetUserByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !checkPassword(user.PasswordHash, oldPassword) {
		return nil, "", ErrInvalidCredentials
	}
	if newPassword == "" {
		return user, "", nil
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return nil, "", err
	}
	return user, hash, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// observe records the duration and outcome of a store operation
func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !isExpected(err) {
		status = "error"
	}
	metrics.RecordDatabaseOperation(operation, status, time.Since(start).Seconds())
}

func isExpected(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrInvalidCredentials)
}
