package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS search_history (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		query   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS download_history (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item    TEXT NOT NULL
	)`,
}

// SQLiteRepository is an AccountStore backed by a single SQLite file,
// used for local runs without PostgreSQL.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the account tables
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Health checks the connection
func (r *SQLiteRepository) Health(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser hashes the password and inserts a new user
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email, password string) (user *models.User, err error) {
	start := time.Now()
	defer func() { observe("create_user", start, err) }()

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	user = &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if dup := sqliteDuplicate(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate returns the user when the password matches
func (r *SQLiteRepository) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
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
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "get_user_by_id", "id", id)
}

// GetUserByUsername retrieves a user by username
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "get_user_by_username", "username", username)
}

func (r *SQLiteRepository) getUser(ctx context.Context, operation, column, value string) (user *models.User, err error) {
	start := time.Now()
	defer func() { observe(operation, start, err) }()

	var (
		u                    models.User
		createdAt, updatedAt string
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at
		 FROM users WHERE `+column+` = ?`, value,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &u, nil
}

// UpdateProfile renames the user and replaces the password in one transaction
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, id, oldPassword, username, newPassword string) (_ *models.User, err error) {
	user, hash, err := prepareProfileUpdate(ctx, r, id, oldPassword, newPassword)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { observe("update_profile", start, err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	if username != "" && username != user.Username {
		if _, err = tx.ExecContext(ctx, `UPDATE users SET username = ?, updated_at = ? WHERE id = ?`, username, now, id); err != nil {
			if dup := sqliteDuplicate(err); dup != nil {
				return nil, dup
			}
			return nil, fmt.Errorf("failed to change username: %w", err)
		}
		user.Username = username
	}
	if hash != "" {
		if _, err = tx.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, now, id); err != nil {
			return nil, fmt.Errorf("failed to change password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile update: %w", err)
	}
	return user, nil
}

// AddSearch appends a search query to the user's history
func (r *SQLiteRepository) AddSearch(ctx context.Context, userID, query string) error {
	return r.addHistory(ctx, "search_history", "query", userID, query)
}

// AddDownload appends a downloaded item to the user's history
func (r *SQLiteRepository) AddDownload(ctx context.Context, userID, item string) error {
	return r.addHistory(ctx, "download_history", "item", userID, item)
}

// SearchHistory returns the user's searches in insertion order
func (r *SQLiteRepository) SearchHistory(ctx context.Context, userID string) ([]string, error) {
	return r.history(ctx, "search_history", "query", userID)
}

// DownloadHistory returns the user's downloads in insertion order
func (r *SQLiteRepository) DownloadHistory(ctx context.Context, userID string) ([]string, error) {
	return r.history(ctx, "download_history", "item", userID)
}

func (r *SQLiteRepository) addHistory(ctx context.Context, table, column, userID, value string) (err error) {
	start := time.Now()
	defer func() { observe("insert_"+table, start, err) }()

	_, err = r.db.ExecContext(ctx, `INSERT INTO `+table+` (user_id, `+column+`) VALUES (?, ?)`, userID, value)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to add to %s: %w", table, err)
	}
	return nil
}

func (r *SQLiteRepository) history(ctx context.Context, table, column, userID string) (items []string, err error) {
	start := time.Now()
	defer func() { observe("select_"+table, start, err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT `+column+` FROM `+table+` WHERE user_id = ? ORDER BY id`, userID)
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

// sqliteDSN enables foreign keys on every connection the pool opens
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func sqliteDuplicate(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	if strings.Contains(msg, "users.email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
