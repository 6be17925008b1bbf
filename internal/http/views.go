package http

import (
	"context"

	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/media"
	"github.com/mrlokans/bookclub/internal/search"
)

// ThreadView is a thread with its computed counters and, on the detail
// page, its comments oldest first.
type ThreadView struct {
	entities.Thread
	entities.ThreadStats
	Comments []entities.Comment `json:"comments,omitempty"`
}

// LikeResponse is returned by the like toggle.
type LikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// FollowResponse is returned by the follow toggle.
type FollowResponse struct {
	Following     bool  `json:"following"`
	FollowerCount int64 `json:"follower_count"`
}

// mediaURLs rewrites stored media keys into client URLs on copies of
// entities, leaving the originals untouched.
type mediaURLs struct {
	store media.Store
}

func (m mediaURLs) book(ctx context.Context, b entities.Book) entities.Book {
	b.CoverImage = media.Resolve(ctx, m.store, b.CoverImage)
	b.AuthorProfileImage = media.Resolve(ctx, m.store, b.AuthorProfileImage)
	b.AudioFile = media.Resolve(ctx, m.store, b.AudioFile)
	if len(b.Threads) > 0 {
		b.Threads = m.threads(ctx, b.Threads)
	}
	return b
}

func (m mediaURLs) books(ctx context.Context, books []entities.Book) []entities.Book {
	out := make([]entities.Book, len(books))
	for i := range books {
		out[i] = m.book(ctx, books[i])
	}
	return out
}

func (m mediaURLs) thread(ctx context.Context, t entities.Thread) entities.Thread {
	t.CoverImage = media.Resolve(ctx, m.store, t.CoverImage)
	if t.Book != nil {
		b := *t.Book
		b.Threads = nil
		b = m.book(ctx, b)
		t.Book = &b
	}
	return t
}

func (m mediaURLs) threads(ctx context.Context, threads []entities.Thread) []entities.Thread {
	out := make([]entities.Thread, len(threads))
	for i := range threads {
		out[i] = m.thread(ctx, threads[i])
	}
	return out
}

// sideEffects keeps the search index and the media store in step with
// committed writes. Failures are logged; the write itself already succeeded.
type sideEffects struct {
	index  SearchIndex
	purger MediaPurger
}

func (s sideEffects) indexBook(book *entities.Book) {
	if s.index == nil || book == nil {
		return
	}
	if err := s.index.Put(search.BookDocument(book)); err != nil {
		logger.Log.WithError(err).WithField("book_id", book.ID).Warn("failed to index book")
	}
}

func (s sideEffects) indexThread(thread *entities.Thread) {
	if s.index == nil || thread == nil {
		return
	}
	if err := s.index.Put(search.ThreadDocument(thread)); err != nil {
		logger.Log.WithError(err).WithField("thread_id", thread.ID).Warn("failed to index thread")
	}
}

// removed drops deleted records from the index and purges their media.
func (s sideEffects) removed(ctx context.Context, r database.Removed) {
	if s.index != nil && (len(r.BookIDs) > 0 || len(r.ThreadIDs) > 0) {
		if err := s.index.Remove(r.BookIDs, r.ThreadIDs); err != nil {
			logger.Log.WithError(err).Warn("failed to remove deleted records from search index")
		}
	}
	s.purge(ctx, r.MediaKeys...)
}

func (s sideEffects) purge(ctx context.Context, keys ...string) {
	if s.purger == nil {
		return
	}
	var live []string
	for _, k := range keys {
		if k != "" && !media.IsRemote(k) {
			live = append(live, k)
		}
	}
	if len(live) > 0 {
		s.purger.Purge(ctx, live)
	}
}
