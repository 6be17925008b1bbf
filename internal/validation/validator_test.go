package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

type threadInput struct {
	Title       string `json:"title" validate:"required,max=10"`
	ReadingDate string `json:"reading_date" validate:"required,datetime=2006-01-02"`
	Rank        int    `json:"customer_review_rank" validate:"gte=0,lte=5"`
	Password    string `json:"password"`
	Confirm     string `json:"password_confirm" validate:"eqfield=Password"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(threadInput{Title: "Dune", ReadingDate: "2024-01-01", Rank: 4})
	assert.NoError(t, err)
}

func TestValidate_FieldDetails(t *testing.T) {
	v := New()
	err := v.Validate(threadInput{
		Title:       "far too long a title",
		ReadingDate: "01/01/2024",
		Rank:        9,
		Password:    "a",
		Confirm:     "b",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	details, ok := de.Details.(map[string]string)
	require.True(t, ok)

	assert.Equal(t, "must not exceed 10 characters", details["title"])
	assert.Equal(t, "must be a date in the format 2006-01-02", details["reading_date"])
	assert.Equal(t, "must be less than or equal to 5", details["customer_review_rank"])
	assert.Equal(t, "must match Password", details["password_confirm"])
}

func TestValidate_Required(t *testing.T) {
	v := New()
	err := v.Validate(threadInput{})

	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	details := de.Details.(map[string]string)
	assert.Equal(t, "is required", details["title"])
	assert.Equal(t, "is required", details["reading_date"])
}
