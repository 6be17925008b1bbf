package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/validation"
)

type CategoryInput struct {
	Name string `form:"name" json:"name" validate:"required,max=50"`
}

type CategoryListResponse struct {
	Categories []entities.Category `json:"categories"`
	Count      int                 `json:"count"`
}

type CategoriesController struct {
	responder
	categories CategoryStore
	validator  *validation.Validator
}

func NewCategoriesController(categories CategoryStore, html bool) *CategoriesController {
	return &CategoriesController{
		responder:  responder{html: html},
		categories: categories,
		validator:  validation.New(),
	}
}

func (cc *CategoriesController) List(c *gin.Context) {
	categories, err := cc.categories.List()
	if err != nil {
		cc.fail(c, err)
		return
	}
	cc.page(c, http.StatusOK, "category_list.html", gin.H{
		"Title":      "Categories",
		"Categories": categories,
	}, CategoryListResponse{Categories: categories, Count: len(categories)})
}

func (cc *CategoriesController) Create(c *gin.Context) {
	var input CategoryInput
	if err := c.ShouldBind(&input); err != nil {
		cc.fail(c, domainerrors.Validation("invalid request body"))
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := cc.validator.Validate(input); err != nil {
		cc.fail(c, err)
		return
	}

	category, err := cc.categories.Create(input.Name)
	if err != nil {
		cc.fail(c, err)
		return
	}
	cc.mutated(c, http.StatusCreated, "/books/category/", category)
}
