package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/search"
)

// SearchController serves full-text search over books and threads.
type SearchController struct {
	index SearchIndex
}

func NewSearchController(index SearchIndex) *SearchController {
	return &SearchController{index: index}
}

// Search handles GET /api/search?q=&type=&category=&limit=&offset=
func (sc *SearchController) Search(c *gin.Context) {
	if sc.index == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "search is disabled"})
		return
	}

	limit, err := queryInt(c, "limit", search.DefaultLimit)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := sc.index.Search(c.Request.Context(), search.Params{
		Query:    strings.TrimSpace(c.Query("q")),
		Types:    search.ParseTypes(c.Query("type")),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondInternalError(c, err, "search")
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domainerrors.Validation("invalid " + name)
	}
	return v, nil
}
