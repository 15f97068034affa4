package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const uniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS search_history (
		id         BIGSERIAL PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		query      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS download_history (
		id         BIGSERIAL PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history(user_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_download_history_user ON download_history(user_id, id)`,
}

// Repository is the PostgreSQL AccountStore
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the account tables
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Health checks the connection
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Users

// CreateUser hashes the password and inserts a new user
func (r *Repository) CreateUser(ctx context.Context, username, email, password string) (user *models.User, err error) {
	start := time.Now()
	defer func() { observe("create_user", start, err) }()

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	query := `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate returns the user when the password matches
func (r *Repository) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "get_user_by_id", "id", id)
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "get_user_by_username", "username", username)
}

func (r *Repository) getUser(ctx context.Context, operation, column, value string) (user *models.User, err error) {
	start := time.Now()
	defer func() { observe(operation, start, err) }()

	if column == "id" {
		if _, perr := uuid.Parse(value); perr != nil {
			return nil, ErrUserNotFound
		}
	}

	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE ` + column + ` = $1
	`

	var u models.User
	err = r.db.Pool.QueryRow(ctx, query, value).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// UpdateProfile renames the user and replaces the password in one transaction
func (r *Repository) UpdateProfile(ctx context.Context, id, oldPassword, username, newPassword string) (_ *models.User, err error) {
	user, hash, err := prepareProfileUpdate(ctx, r, id, oldPassword, newPassword)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { observe("update_profile", start, err) }()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if username != "" && username != user.Username {
		if _, err = tx.Exec(ctx, `UPDATE users SET username = $2, updated_at = NOW() WHERE id = $1`, id, username); err != nil {
			if dup := duplicateField(err); dup != nil {
				return nil, dup
			}
			return nil, fmt.Errorf("failed to change username: %w", err)
		}
		user.Username = username
	}
	if hash != "" {
		if _, err = tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash); err != nil {
			return nil, fmt.Errorf("failed to change password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit profile update: %w", err)
	}
	return user, nil
}

// History

// AddSearch appends a search query to the user's history
func (r *Repository) AddSearch(ctx context.Context, userID, query string) error {
	return r.addHistory(ctx, "search_history", "query", userID, query)
}

// AddDownload appends a downloaded item to the user's history
func (r *Repository) AddDownload(ctx context.Context, userID, item string) error {
	return r.addHistory(ctx, "download_history", "item", userID, item)
}

// SearchHistory returns the user's searches in insertion order
func (r *Repository) SearchHistory(ctx context.Context, userID string) ([]string, error) {
	return r.history(ctx, "search_history", "query", userID)
}

// DownloadHistory returns the user's downloads in insertion order
func (r *Repository) DownloadHistory(ctx context.Context, userID string) ([]string, error) {
	return r.history(ctx, "download_history", "item", userID)
}

func (r *Repository) addHistory(ctx context.Context, table, column, userID, value string) (err error) {
	start := time.Now()
	defer func() { observe("insert_"+table, start, err) }()

	query := `INSERT INTO ` + table + ` (user_id, ` + column + `) VALUES ($1, $2)`
	if _, err = r.db.Pool.Exec(ctx, query, userID, value); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to add %s: %w", strings.TrimSuffix(table, "_history"), err)
	}
	return nil
}

func (r *Repository) history(ctx context.Context, table, column, userID string) (items []string, err error) {
	start := time.Now()
	defer func() { observe("select_"+table, start, err) }()

	query := `SELECT ` + column + ` FROM ` + table + ` WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	items = []string{}
	for rows.Next() {
		var item string
		if err = rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// duplicateField maps a unique violation to the matching sentinel
func duplicateField(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
