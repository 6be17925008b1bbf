// Package users provides database operations for users and the follow graph.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByUsername("alice")
//	following, err := repo.ToggleFollow(user.ID, targetID)
package users

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. Duplicate usernames are reported as ALREADY_EXISTS.
func (r *Repository) Create(user *entities.User) error {
	exists, err := r.UsernameExists(user.Username)
	if err != nil {
		return err
	}
	if exists {
		return domainerrors.AlreadyExists("username already taken")
	}
	if err := r.db.Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race with a concurrent signup for the same name.
			return domainerrors.AlreadyExists("username already taken")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *Repository) UsernameExists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, database.NotFound(err, "user", id)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, database.NotFound(err, "user", username)
	}
	return &user, nil
}

// UpdateProfile overwrites the editable profile fields of a user.
func (r *Repository) UpdateProfile(id uint, email, displayName, bio string) (*entities.User, error) {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"email":        email,
		"display_name": displayName,
		"bio":          bio,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.NotFoundf("user %d not found", id)
	}
	return r.GetByID(id)
}

func (r *Repository) UpdatePasswordHash(id uint, hash string) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// RecordLoginFailure stores the failed attempt counter and the lockout
// deadline; a nil deadline clears an expired lock.
func (r *Repository) RecordLoginFailure(id uint, failedCount int, lockedUntil *time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_count": failedCount,
		"locked_until":       lockedUntil,
	}).Error
}

// RecordLoginSuccess resets lockout state and stamps the login time.
func (r *Repository) RecordLoginSuccess(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// ToggleFollow flips whether followerID follows targetID and returns the new state.
func (r *Repository) ToggleFollow(followerID, targetID uint) (bool, error) {
	if followerID == targetID {
		return false, domainerrors.Validation("you cannot follow yourself")
	}

	var following bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var target entities.User
		if err := tx.Select("id").First(&target, targetID).Error; err != nil {
			return database.NotFound(err, "user", targetID)
		}

		var edge entities.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, targetID).First(&edge).Error
		switch {
		case err == nil:
			following = false
			return tx.Where("follower_id = ? AND following_id = ?", followerID, targetID).
				Delete(&entities.Follow{}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			following = true
			return tx.Create(&entities.Follow{FollowerID: followerID, FollowingID: targetID}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return following, nil
}

func (r *Repository) IsFollowing(followerID, targetID uint) (bool, error) {
	if followerID == 0 {
		return false, nil
	}
	var count int64
	err := r.db.Model(&entities.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, targetID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CountFollowers(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *Repository) CountFollowing(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

// ListFollowers returns the users following userID, ordered by username.
func (r *Repository) ListFollowers(userID uint) ([]entities.User, error) {
	var users []entities.User
	err := r.db.
		Joins("JOIN user_follows ON user_follows.follower_id = users.id").
		Where("user_follows.following_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error
	return users, err
}

// ListFollowing returns the users userID follows, ordered by username.
func (r *Repository) ListFollowing(userID uint) ([]entities.User, error) {
	var users []entities.User
	err := r.db.
		Joins("JOIN user_follows ON user_follows.following_id = users.id").
		Where("user_follows.follower_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error
	return users, err
}

// Delete removes the user together with everything they own in a single
// transaction: their books (with all threads on them), their threads, their
// comments and likes, and follow edges in both directions.
func (r *Repository) Delete(id uint) (database.Removed, error) {
	var removed database.Removed
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			return database.NotFound(err, "user", id)
		}

		var bookIDs []uint
		if err := tx.Model(&entities.Book{}).Where("user_id = ?", id).Pluck("id", &bookIDs).Error; err != nil {
			return err
		}
		books, err := database.DeleteBooks(tx, bookIDs)
		if err != nil {
			return err
		}

		var threadIDs []uint
		if err := tx.Model(&entities.Thread{}).Where("user_id = ?", id).Pluck("id", &threadIDs).Error; err != nil {
			return err
		}
		threads, err := database.DeleteThreads(tx, threadIDs)
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&entities.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.ThreadLike{}).Error; err != nil {
			return fmt.Errorf("failed to delete likes: %w", err)
		}
		if err := tx.Where("follower_id = ? OR following_id = ?", id, id).Delete(&entities.Follow{}).Error; err != nil {
			return fmt.Errorf("failed to delete follows: %w", err)
		}
		if err := tx.Delete(&entities.User{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		removed = books
		removed.Merge(threads)
		return nil
	})
	return removed, err
}
