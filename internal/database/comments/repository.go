// Package comments provides database operations for comments on threads.
package comments

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
)

// Repository handles all comment database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new comments repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a comment after checking that its thread exists.
func (r *Repository) Create(comment *entities.Comment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var thread entities.Thread
		if err := tx.Select("id").First(&thread, comment.ThreadID).Error; err != nil {
			return database.NotFound(err, "thread", comment.ThreadID)
		}
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return nil
	})
}

// GetInThread retrieves a comment that belongs to the given thread.
func (r *Repository) GetInThread(threadID, id uint) (*entities.Comment, error) {
	var comment entities.Comment
	err := r.db.Preload("User").Where("thread_id = ?", threadID).First(&comment, id).Error
	if err != nil {
		return nil, database.NotFound(err, "comment", id)
	}
	return &comment, nil
}

// ListByThread returns a thread's comments, oldest first.
func (r *Repository) ListByThread(threadID uint) ([]entities.Comment, error) {
	var comments []entities.Comment
	err := r.db.Preload("User").Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

// UpdateContent replaces the text of a comment.
func (r *Repository) UpdateContent(comment *entities.Comment) error {
	result := r.db.Model(comment).Select("content").Updates(comment)
	if result.Error != nil {
		return fmt.Errorf("failed to update comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NotFound(gorm.ErrRecordNotFound, "comment", comment.ID)
	}
	return nil
}

func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Comment{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NotFound(gorm.ErrRecordNotFound, "comment", id)
	}
	return nil
}
