package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/database/books"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/search"
)

// Store interfaces used by the controllers. The gorm repositories under
// internal/database implement them.

type BookStore interface {
	Create(book *entities.Book) error
	GetByID(id uint) (*entities.Book, error)
	GetDetail(id uint) (*entities.Book, error)
	List(filter books.Filter) ([]entities.Book, error)
	Update(book *entities.Book) error
	Delete(id uint) (database.Removed, error)
}

type ThreadStore interface {
	Create(thread *entities.Thread) error
	GetByID(id uint) (*entities.Thread, error)
	ListByBook(bookID uint) ([]entities.Thread, error)
	ListByUser(userID uint) ([]entities.Thread, error)
	ListByIDs(ids []uint) ([]entities.Thread, error)
	Update(thread *entities.Thread) error
	Delete(id uint) (database.Removed, error)
	ToggleLike(threadID, userID uint) (bool, int64, error)
	Stats(threadID, viewerID uint) (entities.ThreadStats, error)
}

type CommentStore interface {
	Create(comment *entities.Comment) error
	GetInThread(threadID, id uint) (*entities.Comment, error)
	ListByThread(threadID uint) ([]entities.Comment, error)
	UpdateContent(comment *entities.Comment) error
	Delete(id uint) error
}

type CategoryStore interface {
	List() ([]entities.Category, error)
	GetByID(id uint) (*entities.Category, error)
	Create(name string) (*entities.Category, error)
}

type UserStore interface {
	GetByID(id uint) (*entities.User, error)
	GetByUsername(username string) (*entities.User, error)
	UpdateProfile(id uint, email, displayName, bio string) (*entities.User, error)
	ToggleFollow(followerID, targetID uint) (bool, error)
	IsFollowing(followerID, targetID uint) (bool, error)
	CountFollowers(userID uint) (int64, error)
	CountFollowing(userID uint) (int64, error)
	ListFollowers(userID uint) ([]entities.User, error)
	ListFollowing(userID uint) ([]entities.User, error)
}

// SearchIndex is the full-text index kept in step with books and threads.
type SearchIndex interface {
	Put(doc *search.Document) error
	Remove(bookIDs, threadIDs []uint) error
	Search(ctx context.Context, params search.Params) (*search.Result, error)
	Count() (uint64, error)
}

// EnrichmentQueue schedules background enrichment of a book.
type EnrichmentQueue interface {
	EnqueueEnrichment(ctx context.Context, bookID uint) (string, error)
}

type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// MediaPurger removes media keys left by deleted records.
type MediaPurger interface {
	Purge(ctx context.Context, keys []string)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}
