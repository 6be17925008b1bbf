// Package books provides database operations for books and their enrichment state.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetDetail(123)
package books

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
)

// editableColumns are the columns an owner may change through update.
// user_id and the enrichment bookkeeping are never touched here.
var editableColumns = []string{
	"title",
	"description",
	"customer_review_rank",
	"isbn",
	"author",
	"author_profile_image",
	"author_info",
	"author_works",
	"cover_image",
	"cover_blurhash",
	"category_id",
}

var enrichmentColumns = []string{
	"author_info",
	"author_works",
	"author_profile_image",
	"audio_file",
	"enrichment_status",
	"enrichment_error",
	"updated_at",
	"enriched_at",
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	CategoryID *uint
	UserID     *uint
	// IDs restricts the result to these books; a non-nil empty slice matches nothing.
	IDs    []uint
	Limit  int
	Offset int
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(book *entities.Book) error {
	if book.EnrichmentStatus == "" {
		book.EnrichmentStatus = entities.EnrichmentStatusNone
	}
	if err := r.db.Create(book).Error; err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID retrieves a book with its owner and category.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("User").Preload("Category").First(&book, id).Error
	if err != nil {
		return nil, database.NotFound(err, "book", id)
	}
	return &book, nil
}

// GetDetail retrieves a book with its threads, newest first.
func (r *Repository) GetDetail(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("User").Preload("Category").
		Preload("Threads", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Threads.User").
		First(&book, id).Error
	if err != nil {
		return nil, database.NotFound(err, "book", id)
	}
	return &book, nil
}

// Exists reports whether a book with the given id is present.
func (r *Repository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns books newest first.
func (r *Repository) List(filter Filter) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{}).Preload("User").Preload("Category")
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []entities.Book{}, nil
		}
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var books []entities.Book
	if err := query.Order("created_at DESC, id DESC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Update writes the editable columns of book.
func (r *Repository) Update(book *entities.Book) error {
	result := r.db.Model(book).Select(editableColumns).Updates(book)
	if result.Error != nil {
		return fmt.Errorf("failed to update book: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NotFound(gorm.ErrRecordNotFound, "book", book.ID)
	}
	return nil
}

// Delete removes the book, its threads, and their comments and likes.
func (r *Repository) Delete(id uint) (database.Removed, error) {
	var removed database.Removed
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.Select("id").First(&book, id).Error; err != nil {
			return database.NotFound(err, "book", id)
		}
		var err error
		removed, err = database.DeleteBooks(tx, []uint{id})
		return err
	})
	return removed, err
}

// MarkEnrichmentQueued flags the book as pending and counts the attempt.
func (r *Repository) MarkEnrichmentQueued(id uint) error {
	return r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(map[string]any{
		"enrichment_status":   entities.EnrichmentStatusPending,
		"enrichment_attempts": gorm.Expr("enrichment_attempts + 1"),
		"updated_at":          time.Now(),
	}).Error
}

// SaveEnrichment persists the enrichment results and status of book.
func (r *Repository) SaveEnrichment(book *entities.Book) error {
	return r.db.Model(book).Select(enrichmentColumns).Updates(book).Error
}

// ListForEnrichmentRetry returns books whose enrichment did not finish, that
// have not exhausted maxAttempts and were last touched before idleSince,
// oldest first. Books updated after idleSince may still have a live task.
func (r *Repository) ListForEnrichmentRetry(maxAttempts, limit int, idleSince time.Time) ([]entities.Book, error) {
	statuses := []entities.EnrichmentStatus{
		entities.EnrichmentStatusPending,
		entities.EnrichmentStatusPartial,
		entities.EnrichmentStatusFailed,
	}
	query := r.db.Where("enrichment_status IN ? AND enrichment_attempts < ? AND updated_at < ?", statuses, maxAttempts, idleSince).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var books []entities.Book
	err := query.Find(&books).Error
	return books, err
}
