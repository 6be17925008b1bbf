package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_OwnedBy(t *testing.T) {
	owner := uint(7)

	assert.True(t, (&Book{UserID: &owner}).OwnedBy(7))
	assert.False(t, (&Book{UserID: &owner}).OwnedBy(8))
	assert.False(t, (&Book{}).OwnedBy(7), "ownerless books belong to nobody")
	assert.False(t, (&Book{UserID: new(uint)}).OwnedBy(0), "anonymous callers never own")
}

func TestThreadAndComment_OwnedBy(t *testing.T) {
	assert.True(t, (&Thread{UserID: 3}).OwnedBy(3))
	assert.False(t, (&Thread{UserID: 3}).OwnedBy(4))
	assert.True(t, (&Comment{UserID: 5}).OwnedBy(5))
	assert.False(t, (&Comment{UserID: 5}).OwnedBy(0))
}

func TestEnrichmentStatus_Retryable(t *testing.T) {
	assert.True(t, EnrichmentStatusPending.Retryable())
	assert.True(t, EnrichmentStatusPartial.Retryable())
	assert.True(t, EnrichmentStatusFailed.Retryable())
	assert.False(t, EnrichmentStatusComplete.Retryable())
	assert.False(t, EnrichmentStatusNone.Retryable())
}
