//go:build property
// +build property

package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestLikeToggleHasPeriodTwo verifies that liking a thread n times leaves it
// liked exactly when n is odd, with a like count of at most one per user.
func TestLikeToggleHasPeriodTwo(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.register(t, "owner")
	_, readerToken := env.register(t, "reader")
	book := env.createBook(t, ownerToken, "Dune")

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("n toggles end liked iff n is odd", prop.ForAll(
		func(n int) bool {
			thread := env.createThread(t, ownerToken, book.ID)
			path := fmt.Sprintf("/api/threads/%d/like", thread.ID)

			var last LikeResponse
			for i := 0; i < n; i++ {
				rr := env.api(http.MethodPost, path, readerToken, nil)
				if rr.Code != http.StatusOK {
					return false
				}
				last = decode[LikeResponse](t, rr)
				if last.LikeCount > 1 {
					return false
				}
			}

			stats, err := env.threads.Stats(thread.ID, 0)
			if err != nil {
				return false
			}
			wantLiked := n%2 == 1
			return last.Liked == wantLiked && (stats.LikeCount == 1) == wantLiked
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
