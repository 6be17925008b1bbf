package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/media"
	"github.com/mrlokans/bookclub/internal/validation"
)

// ThreadInput is the create and update form for threads.
type ThreadInput struct {
	Title       string `form:"title" json:"title" validate:"required,max=100"`
	Content     string `form:"content" json:"content"`
	ReadingDate string `form:"reading_date" json:"reading_date" validate:"omitempty,datetime=2006-01-02"`
}

func (in ThreadInput) apply(thread *entities.Thread) {
	thread.Title = strings.TrimSpace(in.Title)
	thread.Content = in.Content
	thread.ReadingDate = in.ReadingDate
}

// ThreadListResponse is the JSON body of a book's thread list.
type ThreadListResponse struct {
	Threads []ThreadView `json:"threads"`
	Count   int          `json:"count"`
}

// ThreadsController serves review threads and likes.
type ThreadsController struct {
	responder
	books     BookStore
	threads   ThreadStore
	comments  CommentStore
	urls      mediaURLs
	effects   sideEffects
	uploads   uploader
	validator *validation.Validator
}

func NewThreadsController(cfg RouterConfig, html bool) *ThreadsController {
	return &ThreadsController{
		responder: responder{html: html},
		books:     cfg.Books,
		threads:   cfg.Threads,
		comments:  cfg.Comments,
		urls:      mediaURLs{store: cfg.Media},
		effects:   sideEffects{index: cfg.Search, purger: cfg.MediaPurger},
		uploads:   uploader{store: cfg.Media, maxSize: cfg.MaxUploadSize},
		validator: validation.New(),
	}
}

func threadPath(bookID, threadID uint) string {
	return fmt.Sprintf("/books/%d/threads/%d/", bookID, threadID)
}

// resolveThread loads the thread named in the path. Page routes carry the
// book id as :id and the thread as :tid, and the two must agree; API routes
// name the thread as :id.
func resolveThread(c *gin.Context, threads ThreadStore) (*entities.Thread, error) {
	if c.Param("tid") == "" {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return nil, err
		}
		return threads.GetByID(id)
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	id, err := parseIDParam(c, "tid")
	if err != nil {
		return nil, err
	}
	thread, err := threads.GetByID(id)
	if err != nil {
		return nil, err
	}
	if thread.BookID != bookID {
		return nil, domainerrors.NotFoundf("thread %d not found", id)
	}
	return thread, nil
}

func (tc *ThreadsController) view(c *gin.Context, thread *entities.Thread) (ThreadView, error) {
	stats, err := tc.threads.Stats(thread.ID, auth.GetUserID(c))
	if err != nil {
		return ThreadView{}, err
	}
	return ThreadView{Thread: tc.urls.thread(c.Request.Context(), *thread), ThreadStats: stats}, nil
}

// ListByBook returns a book's threads newest first with their counters.
func (tc *ThreadsController) ListByBook(c *gin.Context) {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		tc.fail(c, err)
		return
	}
	if _, err := tc.books.GetByID(bookID); err != nil {
		tc.fail(c, err)
		return
	}
	threads, err := tc.threads.ListByBook(bookID)
	if err != nil {
		tc.fail(c, err)
		return
	}

	views := make([]ThreadView, 0, len(threads))
	for i := range threads {
		v, err := tc.view(c, &threads[i])
		if err != nil {
			tc.fail(c, err)
			return
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, ThreadListResponse{Threads: views, Count: len(views)})
}

// NewPage renders the thread form for an existing book.
func (tc *ThreadsController) NewPage(c *gin.Context) {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		tc.fail(c, err)
		return
	}
	book, err := tc.books.GetByID(bookID)
	if err != nil {
		tc.fail(c, err)
		return
	}
	view := tc.urls.book(c.Request.Context(), *book)
	tc.page(c, http.StatusOK, "thread_form.html", gin.H{"Title": "New review", "Book": view}, gin.H{"book": view})
}

func (tc *ThreadsController) bind(c *gin.Context) (ThreadInput, error) {
	var input ThreadInput
	if err := c.ShouldBind(&input); err != nil {
		return input, domainerrors.Validation("invalid request body")
	}
	return input, tc.validator.Validate(input)
}

// Create posts a review on the book named in the path.
func (tc *ThreadsController) Create(c *gin.Context) {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		tc.fail(c, err)
		return
	}
	formData := gin.H{"Title": "New review", "BookID": bookID}

	input, err := tc.bind(c)
	if err != nil {
		formData["Input"] = input
		tc.failForm(c, "thread_form.html", formData, err)
		return
	}
	cover, err := tc.uploads.image(c, "cover_img", media.PrefixThreads)
	if err != nil {
		tc.failForm(c, "thread_form.html", formData, err)
		return
	}

	thread := &entities.Thread{BookID: bookID, UserID: auth.GetUserID(c)}
	input.apply(thread)
	if cover != nil {
		thread.CoverImage = cover.Key
		thread.CoverBlurHash = cover.BlurHash
	}
	if err := tc.threads.Create(thread); err != nil {
		tc.uploads.discard(c.Request.Context(), cover)
		tc.fail(c, err)
		return
	}

	saved, err := tc.threads.GetByID(thread.ID)
	if err != nil {
		tc.fail(c, err)
		return
	}
	tc.effects.indexThread(saved)

	view, err := tc.view(c, saved)
	if err != nil {
		tc.fail(c, err)
		return
	}
	tc.mutated(c, http.StatusCreated, threadPath(bookID, thread.ID), view)
}

// Detail returns a thread with its counters and comments oldest first.
func (tc *ThreadsController) Detail(c *gin.Context) {
	thread, err := resolveThread(c, tc.threads)
	if err != nil {
		tc.fail(c, err)
		return
	}
	view, err := tc.view(c, thread)
	if err != nil {
		tc.fail(c, err)
		return
	}
	if view.Comments, err = tc.comments.ListByThread(thread.ID); err != nil {
		tc.fail(c, err)
		return
	}

	tc.page(c, http.StatusOK, "thread_detail.html", gin.H{
		"Title":   thread.Title,
		"Thread":  view,
		"IsOwner": thread.OwnedBy(auth.GetUserID(c)),
		"UserID":  auth.GetUserID(c),
	}, view)
}

func (tc *ThreadsController) ownedThread(c *gin.Context) (*entities.Thread, error) {
	thread, err := resolveThread(c, tc.threads)
	if err != nil {
		return nil, err
	}
	if !thread.OwnedBy(auth.GetUserID(c)) {
		return nil, domainerrors.Forbidden("you can only change your own threads")
	}
	return thread, nil
}

// EditPage renders the form for an owned thread.
func (tc *ThreadsController) EditPage(c *gin.Context) {
	thread, err := tc.ownedThread(c)
	if err != nil {
		tc.fail(c, err)
		return
	}
	view := tc.urls.thread(c.Request.Context(), *thread)
	tc.page(c, http.StatusOK, "thread_form.html", gin.H{"Title": "Edit " + thread.Title, "Thread": view, "BookID": thread.BookID}, view)
}

// Update changes the text and cover of an owned thread. The book and the
// author of a thread never change.
func (tc *ThreadsController) Update(c *gin.Context) {
	thread, err := tc.ownedThread(c)
	if err != nil {
		tc.fail(c, err)
		return
	}
	formData := gin.H{"Title": "Edit " + thread.Title, "Thread": thread, "BookID": thread.BookID}

	input, err := tc.bind(c)
	if err != nil {
		tc.failForm(c, "thread_form.html", formData, err)
		return
	}
	cover, err := tc.uploads.image(c, "cover_img", media.PrefixThreads)
	if err != nil {
		tc.failForm(c, "thread_form.html", formData, err)
		return
	}

	input.apply(thread)
	var replaced string
	if cover != nil {
		replaced = thread.CoverImage
		thread.CoverImage = cover.Key
		thread.CoverBlurHash = cover.BlurHash
	}
	if err := tc.threads.Update(thread); err != nil {
		tc.uploads.discard(c.Request.Context(), cover)
		tc.fail(c, err)
		return
	}
	tc.effects.purge(c.Request.Context(), replaced)

	saved, err := tc.threads.GetByID(thread.ID)
	if err != nil {
		tc.fail(c, err)
		return
	}
	tc.effects.indexThread(saved)

	view, err := tc.view(c, saved)
	if err != nil {
		tc.fail(c, err)
		return
	}
	tc.mutated(c, http.StatusOK, threadPath(saved.BookID, saved.ID), view)
}

// Delete removes an owned thread with its comments and likes.
func (tc *ThreadsController) Delete(c *gin.Context) {
	thread, err := tc.ownedThread(c)
	if err != nil {
		tc.fail(c, err)
		return
	}
	removed, err := tc.threads.Delete(thread.ID)
	if err != nil {
		tc.fail(c, err)
		return
	}
	tc.effects.removed(c.Request.Context(), removed)
	tc.mutated(c, http.StatusOK, bookPath(thread.BookID), SuccessResponse{Message: "thread deleted"})
}

// Like toggles the caller's like on a thread.
func (tc *ThreadsController) Like(c *gin.Context) {
	thread, err := resolveThread(c, tc.threads)
	if err != nil {
		tc.fail(c, err)
		return
	}
	liked, count, err := tc.threads.ToggleLike(thread.ID, auth.GetUserID(c))
	if err != nil {
		tc.fail(c, err)
		return
	}
	tc.mutated(c, http.StatusOK, threadPath(thread.BookID, thread.ID), LikeResponse{Liked: liked, LikeCount: count})
}
