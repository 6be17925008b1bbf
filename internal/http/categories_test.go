package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoriesController(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	rr := env.api(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	seeded := decode[CategoryListResponse](t, rr)
	assert.NotZero(t, seeded.Count)

	rr = env.api(http.MethodPost, "/api/categories", "", gin.H{"name": "Poetry"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.api(http.MethodPost, "/api/categories", token, gin.H{"name": "Poetry"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.api(http.MethodPost, "/api/categories", token, gin.H{"name": "poetry"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.api(http.MethodPost, "/api/categories", token, gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.api(http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, seeded.Count+1, decode[CategoryListResponse](t, rr).Count)
}
