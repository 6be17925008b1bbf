package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/validation"
)

// CommentInput is the comment form.
type CommentInput struct {
	Content string `form:"content" json:"content" validate:"required,max=5000"`
}

// CommentListResponse is the JSON body of a thread's comments.
type CommentListResponse struct {
	Comments []entities.Comment `json:"comments"`
	Count    int                `json:"count"`
}

// CommentsController serves comments scoped to a parent thread.
type CommentsController struct {
	responder
	threads   ThreadStore
	comments  CommentStore
	validator *validation.Validator
}

func NewCommentsController(cfg RouterConfig, html bool) *CommentsController {
	return &CommentsController{
		responder: responder{html: html},
		threads:   cfg.Threads,
		comments:  cfg.Comments,
		validator: validation.New(),
	}
}

func (cc *CommentsController) bind(c *gin.Context) (CommentInput, error) {
	var input CommentInput
	if err := c.ShouldBind(&input); err != nil {
		return input, domainerrors.Validation("invalid request body")
	}
	input.Content = strings.TrimSpace(input.Content)
	return input, cc.validator.Validate(input)
}

// List returns a thread's comments oldest first.
func (cc *CommentsController) List(c *gin.Context) {
	thread, err := resolveThread(c, cc.threads)
	if err != nil {
		cc.fail(c, err)
		return
	}
	comments, err := cc.comments.ListByThread(thread.ID)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CommentListResponse{Comments: comments, Count: len(comments)})
}

// Create adds a comment by the caller to the thread in the path.
func (cc *CommentsController) Create(c *gin.Context) {
	thread, err := resolveThread(c, cc.threads)
	if err != nil {
		cc.fail(c, err)
		return
	}
	input, err := cc.bind(c)
	if err != nil {
		cc.fail(c, err)
		return
	}

	comment := &entities.Comment{ThreadID: thread.ID, UserID: auth.GetUserID(c), Content: input.Content}
	if err := cc.comments.Create(comment); err != nil {
		cc.fail(c, err)
		return
	}
	cc.mutated(c, http.StatusCreated, threadPath(thread.BookID, thread.ID), comment)
}

// ownedComment loads a comment that belongs to the thread in the path and
// is owned by the caller.
func (cc *CommentsController) ownedComment(c *gin.Context) (*entities.Thread, *entities.Comment, error) {
	thread, err := resolveThread(c, cc.threads)
	if err != nil {
		return nil, nil, err
	}
	id, err := parseIDParam(c, "cid")
	if err != nil {
		return nil, nil, err
	}
	comment, err := cc.comments.GetInThread(thread.ID, id)
	if err != nil {
		return nil, nil, err
	}
	if !comment.OwnedBy(auth.GetUserID(c)) {
		return nil, nil, domainerrors.Forbidden("you can only change your own comments")
	}
	return thread, comment, nil
}

// Update replaces the text of an owned comment.
func (cc *CommentsController) Update(c *gin.Context) {
	thread, comment, err := cc.ownedComment(c)
	if err != nil {
		cc.fail(c, err)
		return
	}
	input, err := cc.bind(c)
	if err != nil {
		cc.fail(c, err)
		return
	}
	comment.Content = input.Content
	if err := cc.comments.UpdateContent(comment); err != nil {
		cc.fail(c, err)
		return
	}
	cc.mutated(c, http.StatusOK, threadPath(thread.BookID, thread.ID), comment)
}

// Delete removes an owned comment.
func (cc *CommentsController) Delete(c *gin.Context) {
	thread, comment, err := cc.ownedComment(c)
	if err != nil {
		cc.fail(c, err)
		return
	}
	if err := cc.comments.Delete(comment.ID); err != nil {
		cc.fail(c, err)
		return
	}
	cc.mutated(c, http.StatusOK, threadPath(thread.BookID, thread.ID), SuccessResponse{Message: "comment deleted"})
}
