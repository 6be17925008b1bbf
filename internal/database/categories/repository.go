// Package categories provides database operations for book categories.
package categories

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all categories ordered by name.
func (r *Repository) List() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *Repository) GetByID(id uint) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, database.NotFound(err, "category", id)
	}
	return &category, nil
}

// Create inserts a category; names are unique case-insensitively.
func (r *Repository) Create(name string) (*entities.Category, error) {
	var count int64
	if err := r.db.Model(&entities.Category{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domainerrors.AlreadyExists(fmt.Sprintf("category %q already exists", name))
	}
	category := &entities.Category{Name: name}
	if err := r.db.Create(category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domainerrors.AlreadyExists(fmt.Sprintf("category %q already exists", name))
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}
