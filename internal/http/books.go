package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/database/books"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/media"
	"github.com/mrlokans/bookclub/internal/search"
	"github.com/mrlokans/bookclub/internal/validation"
)

// BookInput is the create and update form for books.
type BookInput struct {
	Title              string `form:"title" json:"title" validate:"required,max=100"`
	Description        string `form:"description" json:"description"`
	CustomerReviewRank int    `form:"customer_review_rank" json:"customer_review_rank" validate:"gte=0,lte=5"`
	ISBN               string `form:"isbn" json:"isbn" validate:"max=20"`
	Author             string `form:"author" json:"author" validate:"max=50"`
	AuthorInfo         string `form:"author_info" json:"author_info"`
	AuthorWorks        string `form:"author_works" json:"author_works" validate:"max=255"`
	CategoryID         *uint  `form:"category_id" json:"category_id"`
}

func (in BookInput) apply(book *entities.Book) {
	book.Title = strings.TrimSpace(in.Title)
	book.Description = in.Description
	book.CustomerReviewRank = in.CustomerReviewRank
	book.ISBN = strings.TrimSpace(in.ISBN)
	book.Author = strings.TrimSpace(in.Author)
	book.AuthorInfo = in.AuthorInfo
	book.AuthorWorks = in.AuthorWorks
	book.CategoryID = in.CategoryID
	book.Category = nil
}

// BookListResponse is the JSON body of the book list.
type BookListResponse struct {
	Books []entities.Book `json:"books"`
	Count int             `json:"count"`
}

// BooksController serves book pages and the book API.
type BooksController struct {
	responder
	books      BookStore
	categories CategoryStore
	search     SearchIndex
	enrichment EnrichmentQueue
	urls       mediaURLs
	effects    sideEffects
	uploads    uploader
	validator  *validation.Validator
}

func NewBooksController(cfg RouterConfig, html bool) *BooksController {
	return &BooksController{
		responder:  responder{html: html},
		books:      cfg.Books,
		categories: cfg.Categories,
		search:     cfg.Search,
		enrichment: cfg.Enrichment,
		urls:       mediaURLs{store: cfg.Media},
		effects:    sideEffects{index: cfg.Search, purger: cfg.MediaPurger},
		uploads:    uploader{store: cfg.Media, maxSize: cfg.MaxUploadSize},
		validator:  validation.New(),
	}
}

func bookPath(id uint) string {
	return fmt.Sprintf("/books/%d/", id)
}

// List returns all books newest first, optionally narrowed by category and
// a full-text query.
func (bc *BooksController) List(c *gin.Context) {
	categoryID, err := parseOptionalUint(c.Query("category"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	query := strings.TrimSpace(c.Query("q"))

	filter := books.Filter{CategoryID: categoryID}
	if query != "" && bc.search != nil {
		result, err := bc.search.Search(c.Request.Context(), search.Params{
			Query: query,
			Types: []search.DocType{search.DocTypeBook},
			Limit: search.MaxLimit,
		})
		if err != nil {
			bc.fail(c, err)
			return
		}
		filter.IDs = result.IDsOf(search.DocTypeBook)
	}

	list, err := bc.books.List(filter)
	if err != nil {
		bc.fail(c, err)
		return
	}
	if query != "" && bc.search == nil {
		list = matchBooks(list, query)
	}
	list = bc.urls.books(c.Request.Context(), list)

	var categories []entities.Category
	if bc.wantsHTML(c) {
		if categories, err = bc.categories.List(); err != nil {
			bc.fail(c, err)
			return
		}
	}

	bc.page(c, http.StatusOK, "book_list.html", gin.H{
		"Title":      "Books",
		"Books":      list,
		"Categories": categories,
		"Query":      query,
		"CategoryID": categoryID,
	}, BookListResponse{Books: list, Count: len(list)})
}

// matchBooks is the substring fallback used when search is disabled.
func matchBooks(list []entities.Book, query string) []entities.Book {
	q := strings.ToLower(query)
	out := make([]entities.Book, 0, len(list))
	for _, b := range list {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Author), q) {
			out = append(out, b)
		}
	}
	return out
}

// NewPage renders the empty book form.
func (bc *BooksController) NewPage(c *gin.Context) {
	bc.formPage(c, http.StatusOK, gin.H{"Title": "New book"})
}

func (bc *BooksController) formPage(c *gin.Context, status int, data gin.H) {
	categories, err := bc.categories.List()
	if err != nil {
		bc.fail(c, err)
		return
	}
	data["Categories"] = categories
	bc.page(c, status, "book_form.html", data, gin.H{"categories": categories})
}

func (bc *BooksController) bind(c *gin.Context) (BookInput, error) {
	var input BookInput
	if err := c.ShouldBind(&input); err != nil {
		return input, domainerrors.Validation("invalid request body")
	}
	if err := bc.validator.Validate(input); err != nil {
		return input, err
	}
	if input.CategoryID != nil && *input.CategoryID == 0 {
		input.CategoryID = nil
	}
	if input.CategoryID != nil {
		if _, err := bc.categories.GetByID(*input.CategoryID); err != nil {
			if domainerrors.Is(err, domainerrors.ErrNotFound) {
				return input, domainerrors.ValidationWithDetails("validation failed", map[string]string{"category_id": "unknown category"})
			}
			return input, err
		}
	}
	return input, nil
}

// Create stores a new book owned by the caller and schedules enrichment.
func (bc *BooksController) Create(c *gin.Context) {
	input, err := bc.bind(c)
	if err != nil {
		bc.failForm(c, "book_form.html", gin.H{"Title": "New book", "Input": input}, err)
		return
	}

	cover, author, err := bc.saveImages(c)
	if err != nil {
		bc.failForm(c, "book_form.html", gin.H{"Title": "New book", "Input": input}, err)
		return
	}

	userID := auth.GetUserID(c)
	book := &entities.Book{UserID: &userID}
	input.apply(book)
	applyImages(book, cover, author)

	if err := bc.books.Create(book); err != nil {
		bc.uploads.discard(c.Request.Context(), cover, author)
		bc.fail(c, err)
		return
	}

	bc.scheduleEnrichment(c.Request.Context(), book.ID)

	saved, err := bc.books.GetByID(book.ID)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.effects.indexBook(saved)

	view := bc.urls.book(c.Request.Context(), *saved)
	bc.mutated(c, http.StatusCreated, bookPath(book.ID), view)
}

// scheduleEnrichment enqueues the enrichment task. The book is already
// committed, so failures are only logged.
func (bc *BooksController) scheduleEnrichment(ctx context.Context, bookID uint) {
	if bc.enrichment == nil {
		return
	}
	taskID, err := bc.enrichment.EnqueueEnrichment(ctx, bookID)
	if err != nil {
		logger.Log.WithError(err).WithField("book_id", bookID).Warn("failed to enqueue book enrichment")
		return
	}
	logger.Log.WithField("book_id", bookID).WithField("task_id", taskID).Debug("enrichment queued")
}

func (bc *BooksController) saveImages(c *gin.Context) (cover, author *media.Upload, err error) {
	cover, err = bc.uploads.image(c, "cover_image", media.PrefixCovers)
	if err != nil {
		return nil, nil, err
	}
	author, err = bc.uploads.image(c, "author_profile_img", media.PrefixAuthors)
	if err != nil {
		bc.uploads.discard(c.Request.Context(), cover)
		return nil, nil, err
	}
	return cover, author, nil
}

// applyImages sets new image keys on book and returns the keys they replace.
func applyImages(book *entities.Book, cover, author *media.Upload) []string {
	var replaced []string
	if cover != nil {
		replaced = append(replaced, book.CoverImage)
		book.CoverImage = cover.Key
		book.CoverBlurHash = cover.BlurHash
	}
	if author != nil {
		replaced = append(replaced, book.AuthorProfileImage)
		book.AuthorProfileImage = author.Key
	}
	return replaced
}

// Detail returns a book with its threads newest first.
func (bc *BooksController) Detail(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		bc.fail(c, err)
		return
	}
	book, err := bc.books.GetDetail(id)
	if err != nil {
		bc.fail(c, err)
		return
	}

	view := bc.urls.book(c.Request.Context(), *book)
	bc.page(c, http.StatusOK, "book_detail.html", gin.H{
		"Title":   book.Title,
		"Book":    view,
		"IsOwner": book.OwnedBy(auth.GetUserID(c)),
	}, view)
}

// ownedBook loads the book named in the path and checks the caller owns it.
func (bc *BooksController) ownedBook(c *gin.Context) (*entities.Book, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	book, err := bc.books.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !book.OwnedBy(auth.GetUserID(c)) {
		return nil, domainerrors.Forbidden("you can only change your own books")
	}
	return book, nil
}

// EditPage renders the form for an owned book.
func (bc *BooksController) EditPage(c *gin.Context) {
	book, err := bc.ownedBook(c)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.formPage(c, http.StatusOK, gin.H{"Title": "Edit " + book.Title, "Book": bc.urls.book(c.Request.Context(), *book)})
}

// Update replaces the editable fields of an owned book.
func (bc *BooksController) Update(c *gin.Context) {
	book, err := bc.ownedBook(c)
	if err != nil {
		bc.fail(c, err)
		return
	}

	formData := gin.H{"Title": "Edit " + book.Title, "Book": book}
	input, err := bc.bind(c)
	if err != nil {
		bc.failForm(c, "book_form.html", formData, err)
		return
	}
	cover, author, err := bc.saveImages(c)
	if err != nil {
		bc.failForm(c, "book_form.html", formData, err)
		return
	}

	input.apply(book)
	replaced := applyImages(book, cover, author)
	if err := bc.books.Update(book); err != nil {
		bc.uploads.discard(c.Request.Context(), cover, author)
		bc.fail(c, err)
		return
	}
	bc.effects.purge(c.Request.Context(), replaced...)

	saved, err := bc.books.GetByID(book.ID)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.effects.indexBook(saved)
	bc.mutated(c, http.StatusOK, bookPath(book.ID), bc.urls.book(c.Request.Context(), *saved))
}

// Delete removes an owned book with its threads, comments and likes.
func (bc *BooksController) Delete(c *gin.Context) {
	book, err := bc.ownedBook(c)
	if err != nil {
		bc.fail(c, err)
		return
	}
	removed, err := bc.books.Delete(book.ID)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.effects.removed(c.Request.Context(), removed)
	bc.mutated(c, http.StatusOK, "/books/", SuccessResponse{Message: "book deleted"})
}

// Enrich re-queues enrichment for an owned book.
func (bc *BooksController) Enrich(c *gin.Context) {
	book, err := bc.ownedBook(c)
	if err != nil {
		bc.fail(c, err)
		return
	}
	if bc.enrichment == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "enrichment is disabled"})
		return
	}
	taskID, err := bc.enrichment.EnqueueEnrichment(c.Request.Context(), book.ID)
	if err != nil {
		bc.fail(c, err)
		return
	}
	respondAccepted(c, "enrichment queued", gin.H{"task_id": taskID, "book_id": book.ID})
}
