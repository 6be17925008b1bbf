package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/enrichment"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/logger"
)

const EnrichBookQueue = "enrich_book"

var (
	queueMu       sync.RWMutex
	queueDefaults = DefaultConfig()
)

// SetQueueDefaults changes the retry settings of queues registered afterwards.
func SetQueueDefaults(cfg Config) {
	queueMu.Lock()
	defer queueMu.Unlock()
	queueDefaults = cfg
}

func currentDefaults() Config {
	queueMu.RLock()
	defer queueMu.RUnlock()
	return queueDefaults
}

// EnrichBookTask runs the enrichment chain for a single book.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
}

func (t EnrichBookTask) Config() backlite.QueueConfig {
	cfg := currentDefaults()
	return backlite.QueueConfig{
		Name:        EnrichBookQueue,
		MaxAttempts: cfg.MaxRetries,
		Backoff:     cfg.RetryDelay,
		Timeout:     cfg.TaskTimeout,
		Retention: &backlite.Retention{
			Duration:   cfg.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// BookEnricher is the part of the enricher the task needs.
type BookEnricher interface {
	Enrich(ctx context.Context, bookID uint) (*enrichment.Result, error)
}

// EnrichBookProcessor returns the queue processor. Only transient failures
// are returned to backlite for a retry; a deleted book or a permanent
// provider error ends the task, the latter leaving the book failed for the
// retry sweep.
func EnrichBookProcessor(enricher BookEnricher) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}
		log := logger.WithComponent("tasks").WithField("book_id", task.BookID)

		result, err := enricher.Enrich(ctx, task.BookID)
		switch {
		case err == nil:
			log.WithField("status", result.Status).Info("enrichment task finished")
			return nil
		case domainerrors.Is(err, domainerrors.ErrNotFound):
			log.Info("book deleted before enrichment, dropping task")
			return nil
		case enrichment.IsTransient(err):
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		default:
			log.WithError(err).Warn("enrichment failed permanently")
			return nil
		}
	}
}

func NewEnrichBookQueue(enricher BookEnricher) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher))
}

// EnrichmentMarker records that a book has been queued.
type EnrichmentMarker interface {
	MarkEnrichmentQueued(id uint) error
}

// Enqueuer schedules enrichment for books.
type Enqueuer struct {
	client *Client
	books  EnrichmentMarker
}

func NewEnqueuer(client *Client, books EnrichmentMarker) *Enqueuer {
	return &Enqueuer{client: client, books: books}
}

// EnqueueEnrichment marks the book pending and adds an enrich_book task.
// It returns the task id.
func (e *Enqueuer) EnqueueEnrichment(_ context.Context, bookID uint) (string, error) {
	if e == nil || e.client == nil {
		return "", fmt.Errorf("task queue disabled")
	}
	if err := e.books.MarkEnrichmentQueued(bookID); err != nil {
		return "", fmt.Errorf("mark book %d queued: %w", bookID, err)
	}
	ids, err := e.client.Add(EnrichBookTask{BookID: bookID}).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue enrichment for book %d: %w", bookID, err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}
