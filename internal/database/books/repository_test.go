package books

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
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func createOwner(t *testing.T, db *gorm.DB, username string) *entities.User {
	t.Helper()
	user := &entities.User{Username: username}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, db := setupTestDB(t)
	owner := createOwner(t, db, "alice")

	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", CustomerReviewRank: 5, UserID: &owner.ID}
	require.NoError(t, repo.Create(book))
	assert.NotZero(t, book.ID)
	assert.Equal(t, entities.EnrichmentStatusNone, book.EnrichmentStatus)

	got, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Username)

	_, err = repo.GetByID(999)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	exists, err := repo.Exists(book.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepository_GetDetail_ThreadsNewestFirst(t *testing.T) {
	repo, db := setupTestDB(t)
	owner := createOwner(t, db, "alice")
	book := &entities.Book{Title: "Dune", UserID: &owner.ID}
	require.NoError(t, repo.Create(book))

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, db.Create(&entities.Thread{BookID: book.ID, UserID: owner.ID, Title: title}).Error)
	}

	detail, err := repo.GetDetail(book.ID)
	require.NoError(t, err)
	require.Len(t, detail.Threads, 3)
	assert.Equal(t, "third", detail.Threads[0].Title)
	assert.Equal(t, "first", detail.Threads[2].Title)
	require.NotNil(t, detail.Threads[0].User)
}

func TestRepository_List(t *testing.T) {
	repo, db := setupTestDB(t)
	owner := createOwner(t, db, "alice")

	var category entities.Category
	require.NoError(t, db.Where("name = ?", "Fiction").First(&category).Error)

	first := &entities.Book{Title: "one", UserID: &owner.ID, CategoryID: &category.ID}
	second := &entities.Book{Title: "two"}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	all, err := repo.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "two", all[0].Title)

	fiction, err := repo.List(Filter{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, fiction, 1)
	assert.Equal(t, "one", fiction[0].Title)
	require.NotNil(t, fiction[0].Category)
	assert.Equal(t, "Fiction", fiction[0].Category.Name)

	byIDs, err := repo.List(Filter{IDs: []uint{second.ID}})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)

	none, err := repo.List(Filter{IDs: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_Update_KeepsOwner(t *testing.T) {
	repo, db := setupTestDB(t)
	owner := createOwner(t, db, "alice")
	intruder := createOwner(t, db, "mallory")

	book := &entities.Book{Title: "Dune", UserID: &owner.ID}
	require.NoError(t, repo.Create(book))

	book.Title = "Dune Messiah"
	book.UserID = &intruder.ID
	require.NoError(t, repo.Update(book))

	got, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	require.NotNil(t, got.UserID)
	assert.Equal(t, owner.ID, *got.UserID)
}

func TestRepository_Delete(t *testing.T) {
	repo, db := setupTestDB(t)
	owner := createOwner(t, db, "alice")
	book := &entities.Book{Title: "Dune", UserID: &owner.ID}
	require.NoError(t, repo.Create(book))
	thread := &entities.Thread{BookID: book.ID, UserID: owner.ID, Title: "t"}
	require.NoError(t, db.Create(thread).Error)

	removed, err := repo.Delete(book.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{book.ID}, removed.BookIDs)
	assert.Equal(t, []uint{thread.ID}, removed.ThreadIDs)

	_, err = repo.GetByID(book.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = repo.Delete(book.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRepository_Enrichment(t *testing.T) {
	repo, _ := setupTestDB(t)
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(book))

	require.NoError(t, repo.MarkEnrichmentQueued(book.ID))
	later := time.Now().Add(time.Minute)
	retry, err := repo.ListForEnrichmentRetry(5, 0, later)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, 1, retry[0].EnrichmentAttempts)
	assert.Equal(t, entities.EnrichmentStatusPending, retry[0].EnrichmentStatus)

	retry, err = repo.ListForEnrichmentRetry(1, 0, later)
	require.NoError(t, err)
	assert.Empty(t, retry, "attempts exhausted")

	book.AuthorInfo = "American author"
	book.AuthorWorks = "Dune, Children of Dune"
	book.EnrichmentStatus = entities.EnrichmentStatusComplete
	require.NoError(t, repo.SaveEnrichment(book))

	got, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "American author", got.AuthorInfo)
	assert.Equal(t, entities.EnrichmentStatusComplete, got.EnrichmentStatus)

	retry, err = repo.ListForEnrichmentRetry(5, 0, later)
	require.NoError(t, err)
	assert.Empty(t, retry)
}

func TestRepository_ListForEnrichmentRetry_SkipsRecentlyQueued(t *testing.T) {
	repo, db := setupTestDB(t)
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(book))
	require.NoError(t, repo.MarkEnrichmentQueued(book.ID))

	retry, err := repo.ListForEnrichmentRetry(5, 0, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, retry, "a book queued moments ago still has its task")

	book.EnrichmentStatus = entities.EnrichmentStatusFailed
	require.NoError(t, repo.SaveEnrichment(book))
	retry, err = repo.ListForEnrichmentRetry(5, 0, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, retry, "a failure saved moments ago may still be retried by the queue")

	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", book.ID).
		UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error)
	retry, err = repo.ListForEnrichmentRetry(5, 0, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, book.ID, retry[0].ID)
}
