package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/entities"
)

func TestCommentsController_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register(t, "alice")
	_, bobToken := env.register(t, "bob")
	book := env.createBook(t, aliceToken, "Dune")
	thread := env.createThread(t, aliceToken, book.ID)
	base := fmt.Sprintf("/api/threads/%d/comments", thread.ID)

	rr := env.api(http.MethodPost, base, bobToken, gin.H{"content": "  Great pick  "})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	comment := decode[entities.Comment](t, rr)
	assert.Equal(t, "Great pick", comment.Content)

	rr = env.api(http.MethodPost, base, aliceToken, gin.H{"content": "Thanks"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.api(http.MethodGet, base, "", nil)
	list := decode[CommentListResponse](t, rr)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Great pick", list.Comments[0].Content, "oldest first")

	commentPath := fmt.Sprintf("%s/%d", base, comment.ID)
	rr = env.api(http.MethodPut, commentPath, aliceToken, gin.H{"content": "hijacked"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.api(http.MethodPut, commentPath, bobToken, gin.H{"content": "Great pick!"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Great pick!", decode[entities.Comment](t, rr).Content)

	rr = env.api(http.MethodDelete, commentPath, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = env.api(http.MethodDelete, commentPath, bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	remaining, err := env.comments.ListByThread(thread.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestCommentsController_CommentMustBelongToThread(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")
	book := env.createBook(t, token, "Dune")
	first := env.createThread(t, token, book.ID)
	second := env.createThread(t, token, book.ID)

	rr := env.api(http.MethodPost, fmt.Sprintf("/api/threads/%d/comments", first.ID), token, gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, rr.Code)
	comment := decode[entities.Comment](t, rr)

	rr = env.api(http.MethodPut, fmt.Sprintf("/api/threads/%d/comments/%d", second.ID, comment.ID), token, gin.H{"content": "moved"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.api(http.MethodDelete, fmt.Sprintf("/api/threads/%d/comments/%d", second.ID, comment.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCommentsController_RequiresContent(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")
	book := env.createBook(t, token, "Dune")
	thread := env.createThread(t, token, book.ID)

	rr := env.api(http.MethodPost, fmt.Sprintf("/api/threads/%d/comments", thread.ID), token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.api(http.MethodPost, "/api/threads/999/comments", token, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
