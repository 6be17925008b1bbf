package users

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func createUser(t *testing.T, repo *Repository, username string) *entities.User {
	t.Helper()
	user := &entities.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, repo.Create(user))
	return user
}

func TestRepository_Create(t *testing.T) {
	repo, _ := setupTestDB(t)

	user := createUser(t, repo, "alice")
	assert.NotZero(t, user.ID)

	err := repo.Create(&entities.User{Username: "alice"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestRepository_Create_ConcurrentDuplicate(t *testing.T) {
	repo, db := setupTestDB(t)

	// Another signup for the same name commits between the existence check
	// and the insert.
	raced := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:signup_race", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)", "bob", "hash", now, now)
	}))

	err := repo.Create(&entities.User{Username: "bob", PasswordHash: "hash"})
	require.True(t, raced)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists), "got %v", err)
	assert.Equal(t, 409, domainerrors.StatusOf(err))
}

func TestRepository_GetByUsername(t *testing.T) {
	repo, _ := setupTestDB(t)
	created := createUser(t, repo, "alice")

	user, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = repo.GetByUsername("nobody")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = repo.GetByID(999)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRepository_UpdateProfile(t *testing.T) {
	repo, _ := setupTestDB(t)
	user := createUser(t, repo, "alice")

	updated, err := repo.UpdateProfile(user.ID, "a@example.com", "Alice", "reads a lot")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", updated.Email)
	assert.Equal(t, "Alice", updated.DisplayName)
	assert.Equal(t, "reads a lot", updated.Bio)

	_, err = repo.UpdateProfile(999, "", "", "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRepository_LoginBookkeeping(t *testing.T) {
	repo, _ := setupTestDB(t)
	user := createUser(t, repo, "alice")

	until := time.Now().Add(time.Hour)
	require.NoError(t, repo.RecordLoginFailure(user.ID, 5, &until))

	locked, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, locked.FailedLoginCount)
	require.NotNil(t, locked.LockedUntil)

	require.NoError(t, repo.RecordLoginSuccess(user.ID, time.Now()))
	reset, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Zero(t, reset.FailedLoginCount)
	assert.Nil(t, reset.LockedUntil)
	assert.NotNil(t, reset.LastLoginAt)
}

func TestRepository_ToggleFollow(t *testing.T) {
	repo, _ := setupTestDB(t)
	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")

	following, err := repo.ToggleFollow(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	isFollowing, err := repo.IsFollowing(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isFollowing)

	followers, err := repo.CountFollowers(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)

	followingCount, err := repo.CountFollowing(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followingCount)

	list, err := repo.ListFollowers(bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)

	list, err = repo.ListFollowing(alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Username)

	following, err = repo.ToggleFollow(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	followers, err = repo.CountFollowers(bob.ID)
	require.NoError(t, err)
	assert.Zero(t, followers)
}

func TestRepository_ToggleFollow_Rejects(t *testing.T) {
	repo, _ := setupTestDB(t)
	alice := createUser(t, repo, "alice")

	_, err := repo.ToggleFollow(alice.ID, alice.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = repo.ToggleFollow(alice.ID, 999)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	count, err := repo.CountFollowing(alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_Delete_Cascades(t *testing.T) {
	repo, db := setupTestDB(t)
	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")

	aliceBook := entities.Book{Title: "Alice's book", UserID: &alice.ID, CoverImage: "covers/x.jpg"}
	bobBook := entities.Book{Title: "Bob's book", UserID: &bob.ID}
	require.NoError(t, db.Create(&aliceBook).Error)
	require.NoError(t, db.Create(&bobBook).Error)

	// Bob reviews Alice's book; Alice reviews Bob's book.
	bobOnAlice := entities.Thread{BookID: aliceBook.ID, UserID: bob.ID, Title: "b on a"}
	aliceOnBob := entities.Thread{BookID: bobBook.ID, UserID: alice.ID, Title: "a on b"}
	bobOnBob := entities.Thread{BookID: bobBook.ID, UserID: bob.ID, Title: "b on b"}
	for _, th := range []*entities.Thread{&bobOnAlice, &aliceOnBob, &bobOnBob} {
		require.NoError(t, db.Create(th).Error)
	}
	require.NoError(t, db.Create(&entities.Comment{ThreadID: bobOnBob.ID, UserID: alice.ID, Content: "hi"}).Error)
	require.NoError(t, db.Create(&entities.ThreadLike{ThreadID: bobOnBob.ID, UserID: alice.ID}).Error)
	_, err := repo.ToggleFollow(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = repo.ToggleFollow(bob.ID, alice.ID)
	require.NoError(t, err)

	removed, err := repo.Delete(alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{aliceBook.ID}, removed.BookIDs)
	assert.ElementsMatch(t, []uint{bobOnAlice.ID, aliceOnBob.ID}, removed.ThreadIDs)
	assert.Contains(t, removed.MediaKeys, "covers/x.jpg")

	_, err = repo.GetByID(alice.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	var books []entities.Book
	require.NoError(t, db.Find(&books).Error)
	require.Len(t, books, 1)
	assert.Equal(t, bobBook.ID, books[0].ID)

	var threads []entities.Thread
	require.NoError(t, db.Find(&threads).Error)
	require.Len(t, threads, 1)
	assert.Equal(t, bobOnBob.ID, threads[0].ID)

	for _, model := range []any{&entities.Comment{}, &entities.ThreadLike{}, &entities.Follow{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T should be empty", model)
	}

	_, err = repo.Delete(alice.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
