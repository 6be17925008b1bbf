// Package threads provides database operations for threads and thread likes.
package threads

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
)

var editableColumns = []string{"title", "content", "reading_date", "cover_image", "cover_blurhash"}

// Repository handles all thread database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new threads repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a thread after checking that its book exists.
func (r *Repository) Create(thread *entities.Thread) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.Select("id").First(&book, thread.BookID).Error; err != nil {
			return database.NotFound(err, "book", thread.BookID)
		}
		if err := tx.Create(thread).Error; err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a thread with its book and author.
func (r *Repository) GetByID(id uint) (*entities.Thread, error) {
	var thread entities.Thread
	if err := r.db.Preload("Book").Preload("User").First(&thread, id).Error; err != nil {
		return nil, database.NotFound(err, "thread", id)
	}
	return &thread, nil
}

// ListByBook returns a book's threads, newest first.
func (r *Repository) ListByBook(bookID uint) ([]entities.Thread, error) {
	var threads []entities.Thread
	err := r.db.Preload("User").Where("book_id = ?", bookID).
		Order("created_at DESC, id DESC").Find(&threads).Error
	return threads, err
}

// ListByUser returns a user's threads, newest first.
func (r *Repository) ListByUser(userID uint) ([]entities.Thread, error) {
	var threads []entities.Thread
	err := r.db.Preload("Book").Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&threads).Error
	return threads, err
}

// ListByIDs returns the given threads, newest first.
func (r *Repository) ListByIDs(ids []uint) ([]entities.Thread, error) {
	threads := []entities.Thread{}
	if len(ids) == 0 {
		return threads, nil
	}
	err := r.db.Preload("Book").Preload("User").Where("id IN ?", ids).
		Order("created_at DESC, id DESC").Find(&threads).Error
	return threads, err
}

// ListAll returns every thread; used to rebuild the search index.
func (r *Repository) ListAll() ([]entities.Thread, error) {
	var threads []entities.Thread
	err := r.db.Preload("Book").Preload("User").Order("id ASC").Find(&threads).Error
	return threads, err
}

// Update writes the editable columns. BookID and UserID are never changed.
func (r *Repository) Update(thread *entities.Thread) error {
	result := r.db.Model(thread).Select(editableColumns).Updates(thread)
	if result.Error != nil {
		return fmt.Errorf("failed to update thread: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NotFound(gorm.ErrRecordNotFound, "thread", thread.ID)
	}
	return nil
}

// Delete removes the thread with its comments and likes.
func (r *Repository) Delete(id uint) (database.Removed, error) {
	var removed database.Removed
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var thread entities.Thread
		if err := tx.Select("id").First(&thread, id).Error; err != nil {
			return database.NotFound(err, "thread", id)
		}
		var err error
		removed, err = database.DeleteThreads(tx, []uint{id})
		return err
	})
	return removed, err
}

// ToggleLike flips the like of userID on the thread and returns the new
// state together with the resulting like count.
func (r *Repository) ToggleLike(threadID, userID uint) (liked bool, count int64, err error) {
	err = r.db.Transaction(func(tx *gorm.DB) error {
		var thread entities.Thread
		if err := tx.Select("id").First(&thread, threadID).Error; err != nil {
			return database.NotFound(err, "thread", threadID)
		}

		var like entities.ThreadLike
		err := tx.Where("thread_id = ? AND user_id = ?", threadID, userID).First(&like).Error
		switch {
		case err == nil:
			liked = false
			if err := tx.Where("thread_id = ? AND user_id = ?", threadID, userID).
				Delete(&entities.ThreadLike{}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			liked = true
			if err := tx.Create(&entities.ThreadLike{ThreadID: threadID, UserID: userID}).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return tx.Model(&entities.ThreadLike{}).Where("thread_id = ?", threadID).Count(&count).Error
	})
	return liked, count, err
}

func (r *Repository) CountLikes(threadID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.ThreadLike{}).Where("thread_id = ?", threadID).Count(&count).Error
	return count, err
}

func (r *Repository) IsLikedBy(threadID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := r.db.Model(&entities.ThreadLike{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CountComments(threadID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Comment{}).Where("thread_id = ?", threadID).Count(&count).Error
	return count, err
}

// Stats gathers the counters shown next to a thread for the given viewer.
func (r *Repository) Stats(threadID, viewerID uint) (entities.ThreadStats, error) {
	var stats entities.ThreadStats
	var err error
	if stats.LikeCount, err = r.CountLikes(threadID); err != nil {
		return stats, err
	}
	if stats.CommentCount, err = r.CountComments(threadID); err != nil {
		return stats, err
	}
	if stats.IsLiked, err = r.IsLikedBy(threadID, viewerID); err != nil {
		return stats, err
	}
	return stats, nil
}
