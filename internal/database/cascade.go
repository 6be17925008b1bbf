package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

// Removed lists what a cascading delete took out so callers can clean up
// the search index and the media store after the transaction commits.
type Removed struct {
	BookIDs   []uint
	ThreadIDs []uint
	MediaKeys []string
}

func (r *Removed) Merge(other Removed) {
	r.BookIDs = append(r.BookIDs, other.BookIDs...)
	r.ThreadIDs = append(r.ThreadIDs, other.ThreadIDs...)
	r.MediaKeys = append(r.MediaKeys, other.MediaKeys...)
}

func (r *Removed) addMedia(keys ...string) {
	for _, k := range keys {
		if k != "" {
			r.MediaKeys = append(r.MediaKeys, k)
		}
	}
}

// NotFound converts gorm.ErrRecordNotFound into a coded not-found error and
// passes every other error through.
func NotFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerrors.NotFoundf("%s %v not found", entity, id)
	}
	return err
}

// DeleteThreads removes threads with their comments and likes. Must run inside tx.
func DeleteThreads(tx *gorm.DB, threadIDs []uint) (Removed, error) {
	var removed Removed
	if len(threadIDs) == 0 {
		return removed, nil
	}

	var threads []entities.Thread
	if err := tx.Select("id", "cover_image").Where("id IN ?", threadIDs).Find(&threads).Error; err != nil {
		return removed, fmt.Errorf("failed to load threads: %w", err)
	}
	for _, t := range threads {
		removed.ThreadIDs = append(removed.ThreadIDs, t.ID)
		removed.addMedia(t.CoverImage)
	}

	if err := tx.Where("thread_id IN ?", threadIDs).Delete(&entities.Comment{}).Error; err != nil {
		return removed, fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := tx.Where("thread_id IN ?", threadIDs).Delete(&entities.ThreadLike{}).Error; err != nil {
		return removed, fmt.Errorf("failed to delete likes: %w", err)
	}
	if err := tx.Where("id IN ?", threadIDs).Delete(&entities.Thread{}).Error; err != nil {
		return removed, fmt.Errorf("failed to delete threads: %w", err)
	}
	return removed, nil
}

// DeleteBooks removes books and everything hanging off their threads. Must run inside tx.
func DeleteBooks(tx *gorm.DB, bookIDs []uint) (Removed, error) {
	var removed Removed
	if len(bookIDs) == 0 {
		return removed, nil
	}

	var books []entities.Book
	err := tx.Select("id", "cover_image", "author_profile_image", "audio_file").
		Where("id IN ?", bookIDs).Find(&books).Error
	if err != nil {
		return removed, fmt.Errorf("failed to load books: %w", err)
	}
	for _, b := range books {
		removed.BookIDs = append(removed.BookIDs, b.ID)
		removed.addMedia(b.CoverImage, b.AuthorProfileImage, b.AudioFile)
	}

	var threadIDs []uint
	if err := tx.Model(&entities.Thread{}).Where("book_id IN ?", bookIDs).Pluck("id", &threadIDs).Error; err != nil {
		return removed, fmt.Errorf("failed to list threads: %w", err)
	}
	threads, err := DeleteThreads(tx, threadIDs)
	if err != nil {
		return removed, err
	}
	removed.Merge(threads)

	if err := tx.Where("id IN ?", bookIDs).Delete(&entities.Book{}).Error; err != nil {
		return removed, fmt.Errorf("failed to delete books: %w", err)
	}
	return removed, nil
}
