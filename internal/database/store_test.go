package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

// runAccountStoreTests exercises the AccountStore contract against any backend
func runAccountStoreTests(t *testing.T, newStore func(t *testing.T) AccountStore) {
	ctx := context.Background()

	t.Run("CreateAndAuthenticate", func(t *testing.T) {
		store := newStore(t)
		name := "alice-" + uuid.NewString()[:8]

		user, err := store.CreateUser(ctx, name, name+"@example.com", "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "s3cret", user.PasswordHash)

		got, err := store.Authenticate(ctx, name, "s3cret")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, name+"@example.com", got.Email)

		_, err = store.Authenticate(ctx, name, "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = store.Authenticate(ctx, "nobody-"+name, "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Duplicates", func(t *testing.T) {
		store := newStore(t)
		name := "bob-" + uuid.NewString()[:8]

		_, err := store.CreateUser(ctx, name, name+"@example.com", "pw")
		require.NoError(t, err)

		_, err = store.CreateUser(ctx, name+"-2", name+"@example.com", "pw")
		assert.ErrorIs(t, err, ErrEmailTaken)

		_, err = store.CreateUser(ctx, name, name+"-2@example.com", "pw")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("Lookup", func(t *testing.T) {
		store := newStore(t)
		name := "carol-" + uuid.NewString()[:8]

		user, err := store.CreateUser(ctx, name, name+"@example.com", "pw")
		require.NoError(t, err)

		byID, err := store.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, name, byID.Username)

		byName, err := store.GetUserByUsername(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		_, err = store.GetUserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = store.GetUserByUsername(ctx, "missing-"+name)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("UpdateProfileRename", func(t *testing.T) {
		store := newStore(t)
		suffix := uuid.NewString()[:8]

		user, err := store.CreateUser(ctx, "dave-"+suffix, "dave-"+suffix+"@example.com", "pw")
		require.NoError(t, err)
		_, err = store.CreateUser(ctx, "erin-"+suffix, "erin-"+suffix+"@example.com", "pw")
		require.NoError(t, err)

		updated, err := store.UpdateProfile(ctx, user.ID, "pw", "david-"+suffix, "")
		require.NoError(t, err)
		assert.Equal(t, "david-"+suffix, updated.Username)
		got, err := store.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "david-"+suffix, got.Username)

		_, err = store.UpdateProfile(ctx, uuid.NewString(), "pw", "frank-"+suffix, "")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("UpdateProfilePassword", func(t *testing.T) {
		store := newStore(t)
		name := "grace-" + uuid.NewString()[:8]

		user, err := store.CreateUser(ctx, name, name+"@example.com", "old")
		require.NoError(t, err)

		_, err = store.UpdateProfile(ctx, user.ID, "bad", "", "new")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		// Empty new password keeps the old one
		_, err = store.UpdateProfile(ctx, user.ID, "old", "", "")
		require.NoError(t, err)
		_, err = store.Authenticate(ctx, name, "old")
		require.NoError(t, err)

		_, err = store.UpdateProfile(ctx, user.ID, "old", name, "new")
		require.NoError(t, err)
		_, err = store.Authenticate(ctx, name, "new")
		require.NoError(t, err)
		_, err = store.Authenticate(ctx, name, "old")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UpdateProfileIsAtomic", func(t *testing.T) {
		store := newStore(t)
		suffix := uuid.NewString()[:8]

		user, err := store.CreateUser(ctx, "ivan-"+suffix, "ivan-"+suffix+"@example.com", "pw")
		require.NoError(t, err)
		_, err = store.CreateUser(ctx, "judy-"+suffix, "judy-"+suffix+"@example.com", "pw")
		require.NoError(t, err)

		_, err = store.UpdateProfile(ctx, user.ID, "pw", "judy-"+suffix, "changed")
		assert.ErrorIs(t, err, ErrUsernameTaken)

		got, err := store.Authenticate(ctx, "ivan-"+suffix, "pw")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		_, err = store.Authenticate(ctx, "ivan-"+suffix, "changed")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("History", func(t *testing.T) {
		store := newStore(t)
		name := "heidi-" + uuid.NewString()[:8]

		user, err := store.CreateUser(ctx, name, name+"@example.com", "pw")
		require.NoError(t, err)

		empty, err := store.SearchHistory(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, empty)
		assert.NotNil(t, empty)

		for _, q := range []string{"golang", "rust", "golang"} {
			require.NoError(t, store.AddSearch(ctx, user.ID, q))
		}
		require.NoError(t, store.AddDownload(ctx, user.ID, "summary.pdf"))
		require.NoError(t, store.AddDownload(ctx, user.ID, "summary.docx"))

		searches, err := store.SearchHistory(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"golang", "rust", "golang"}, searches)

		downloads, err := store.DownloadHistory(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"summary.pdf", "summary.docx"}, downloads)

		profile, err := LoadProfile(ctx, store, user)
		require.NoError(t, err)
		assert.Equal(t, name, profile.Username)
		assert.Equal(t, searches, profile.SearchHistory)
		assert.Equal(t, downloads, profile.DownloadHistory)

		err = store.AddSearch(ctx, uuid.NewString(), "orphan")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("Health", func(t *testing.T) {
		assert.NoError(t, newStore(t).Health(ctx))
	})
}

func TestSQLiteRepository(t *testing.T) {
	runAccountStoreTests(t, func(t *testing.T) AccountStore {
		return newSQLiteStore(t)
	})
}

func TestRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test - TEST_DATABASE_URL not set")
	}

	db, err := Connect(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))

	runAccountStoreTests(t, func(t *testing.T) AccountStore {
		return repo
	})
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	repo := newSQLiteStore(t)
	assert.NoError(t, repo.Migrate(context.Background()))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)", sqliteDSN("file:x.db?mode=rwc"))
}

func TestSQLiteForeignKeysOnFreshConnections(t *testing.T) {
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	// Every statement below runs on a newly opened connection
	repo.db.SetMaxIdleConns(0)
	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	var enabled int
	require.NoError(t, repo.db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&enabled))
	assert.Equal(t, 1, enabled)

	err = repo.AddSearch(ctx, uuid.NewString(), "orphan")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepositoryRejectsMalformedID(t *testing.T) {
	repo := NewRepository(&DB{})
	_, err := repo.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
