package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/media"
)

const PurgeMediaQueue = "purge_media"

// PurgeMediaTask deletes media objects left behind by deleted books, reviews
// and accounts.
type PurgeMediaTask struct {
	Keys []string `json:"keys"`
}

func (t PurgeMediaTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        PurgeMediaQueue,
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

// PurgeMediaProcessor deletes every key, skipping remote URLs and keys that
// are already gone. Any other failure retries the whole task.
func PurgeMediaProcessor(store media.Store) backlite.QueueProcessor[PurgeMediaTask] {
	return func(ctx context.Context, task PurgeMediaTask) error {
		if store == nil {
			return fmt.Errorf("media store not configured")
		}
		var errs []error
		deleted := 0
		for _, key := range task.Keys {
			if key == "" || media.IsRemote(key) {
				continue
			}
			if err := store.Delete(ctx, key); err != nil && !errors.Is(err, media.ErrNotFound) {
				errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
				continue
			}
			deleted++
		}
		logger.WithComponent("tasks").WithField("deleted", deleted).Debug("purged media")
		return errors.Join(errs...)
	}
}

func NewPurgeMediaQueue(store media.Store) backlite.Queue {
	return backlite.NewQueue(PurgeMediaProcessor(store))
}

// MediaPurger removes media in the background when a task client is
// available and inline otherwise.
type MediaPurger struct {
	client *Client
	store  media.Store
}

func NewMediaPurger(client *Client, store media.Store) *MediaPurger {
	return &MediaPurger{client: client, store: store}
}

func (p *MediaPurger) Purge(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if p.client != nil {
		_, err := p.client.Add(PurgeMediaTask{Keys: keys}).Save()
		if err == nil {
			return
		}
		logger.WithComponent("tasks").WithError(err).Warn("failed to enqueue media purge, deleting inline")
	}
	media.DeleteAll(ctx, p.store, keys...)
}
