package threads

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

type fixture struct {
	repo  *Repository
	db    *gorm.DB
	alice *entities.User
	bob   *entities.User
	book  *entities.Book
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "threads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := fixture{
		repo:  NewRepository(db.DB),
		db:    db.DB,
		alice: &entities.User{Username: "alice"},
		bob:   &entities.User{Username: "bob"},
	}
	require.NoError(t, db.DB.Create(f.alice).Error)
	require.NoError(t, db.DB.Create(f.bob).Error)
	f.book = &entities.Book{Title: "Dune", UserID: &f.alice.ID}
	require.NoError(t, db.DB.Create(f.book).Error)
	return f
}

func TestRepository_Create_RequiresBook(t *testing.T) {
	f := setup(t)

	err := f.repo.Create(&entities.Thread{BookID: 999, UserID: f.alice.ID, Title: "orphan"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	var count int64
	require.NoError(t, f.db.Model(&entities.Thread{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepository_LikeScenario(t *testing.T) {
	f := setup(t)

	thread := &entities.Thread{BookID: f.book.ID, UserID: f.alice.ID, Title: "Review", ReadingDate: "2024-01-01"}
	require.NoError(t, f.repo.Create(thread))

	liked, count, err := f.repo.ToggleLike(thread.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	isLiked, err := f.repo.IsLikedBy(thread.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, isLiked)

	liked, count, err = f.repo.ToggleLike(thread.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Zero(t, count)

	_, _, err = f.repo.ToggleLike(999, f.bob.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRepository_Stats(t *testing.T) {
	f := setup(t)
	thread := &entities.Thread{BookID: f.book.ID, UserID: f.alice.ID, Title: "Review"}
	require.NoError(t, f.repo.Create(thread))
	require.NoError(t, f.db.Create(&entities.Comment{ThreadID: thread.ID, UserID: f.bob.ID, Content: "nice"}).Error)
	_, _, err := f.repo.ToggleLike(thread.ID, f.alice.ID)
	require.NoError(t, err)

	stats, err := f.repo.Stats(thread.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.LikeCount)
	assert.Equal(t, int64(1), stats.CommentCount)
	assert.True(t, stats.IsLiked)

	anonymous, err := f.repo.Stats(thread.ID, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.IsLiked)
}

func TestRepository_Update_KeepsReferences(t *testing.T) {
	f := setup(t)
	other := &entities.Book{Title: "Emma"}
	require.NoError(t, f.db.Create(other).Error)

	thread := &entities.Thread{BookID: f.book.ID, UserID: f.alice.ID, Title: "Review"}
	require.NoError(t, f.repo.Create(thread))

	thread.Title = "Revised"
	thread.BookID = other.ID
	thread.UserID = f.bob.ID
	require.NoError(t, f.repo.Update(thread))

	got, err := f.repo.GetByID(thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revised", got.Title)
	assert.Equal(t, f.book.ID, got.BookID)
	assert.Equal(t, f.alice.ID, got.UserID)
}

func TestRepository_ListOrdering(t *testing.T) {
	f := setup(t)
	for _, title := range []string{"old", "new"} {
		require.NoError(t, f.repo.Create(&entities.Thread{BookID: f.book.ID, UserID: f.bob.ID, Title: title}))
	}

	byBook, err := f.repo.ListByBook(f.book.ID)
	require.NoError(t, err)
	require.Len(t, byBook, 2)
	assert.Equal(t, "new", byBook[0].Title)

	byUser, err := f.repo.ListByUser(f.bob.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "new", byUser[0].Title)

	byIDs, err := f.repo.ListByIDs([]uint{byBook[1].ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, "old", byIDs[0].Title)
}

func TestRepository_Delete(t *testing.T) {
	f := setup(t)
	thread := &entities.Thread{BookID: f.book.ID, UserID: f.alice.ID, Title: "Review"}
	require.NoError(t, f.repo.Create(thread))
	require.NoError(t, f.db.Create(&entities.Comment{ThreadID: thread.ID, UserID: f.bob.ID, Content: "x"}).Error)

	removed, err := f.repo.Delete(thread.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{thread.ID}, removed.ThreadIDs)

	count, err := f.repo.CountComments(thread.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.repo.Delete(thread.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
