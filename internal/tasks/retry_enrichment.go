package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/logger"
)

const RetryEnrichmentQueue = "retry_enrichment"

// sweepBatch bounds how many books one sweep re-enqueues.
const sweepBatch = 100

// RetryEnrichmentTask re-enqueues books whose enrichment did not complete.
type RetryEnrichmentTask struct{}

func (t RetryEnrichmentTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        RetryEnrichmentQueue,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

type RetryLister interface {
	ListForEnrichmentRetry(maxAttempts, limit int, idleSince time.Time) ([]entities.Book, error)
}

type EnrichmentEnqueuer interface {
	EnqueueEnrichment(ctx context.Context, bookID uint) (string, error)
}

// Sweeper finds unfinished enrichments below maxAttempts and queues them again.
// Books touched within the idle window are skipped: their enrich_book task may
// still be queued, running or waiting out its backoff.
type Sweeper struct {
	books       RetryLister
	enqueuer    EnrichmentEnqueuer
	maxAttempts int
	now         func() time.Time
}

func NewSweeper(books RetryLister, enqueuer EnrichmentEnqueuer, maxAttempts int) *Sweeper {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Sweeper{books: books, enqueuer: enqueuer, maxAttempts: maxAttempts, now: time.Now}
}

// IdleWindow is how long an enrich_book task can stay alive in the queue:
// every attempt may hit the timeout, be released late and wait its backoff.
func IdleWindow(cfg Config) time.Duration {
	attempts := max(cfg.MaxRetries, 1)
	return time.Duration(attempts) * (cfg.TaskTimeout + cfg.ReleaseAfter + cfg.RetryDelay)
}

// Sweep returns the number of books queued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	idleSince := s.now().Add(-IdleWindow(currentDefaults()))
	books, err := s.books.ListForEnrichmentRetry(s.maxAttempts, sweepBatch, idleSince)
	if err != nil {
		return 0, fmt.Errorf("list books for retry: %w", err)
	}
	queued := 0
	for _, book := range books {
		if ctx.Err() != nil {
			return queued, ctx.Err()
		}
		if _, err := s.enqueuer.EnqueueEnrichment(ctx, book.ID); err != nil {
			logger.WithComponent("tasks").WithError(err).WithField("book_id", book.ID).Warn("failed to re-enqueue enrichment")
			continue
		}
		queued++
	}
	return queued, nil
}

func RetryEnrichmentProcessor(sweeper *Sweeper) backlite.QueueProcessor[RetryEnrichmentTask] {
	return func(ctx context.Context, _ RetryEnrichmentTask) error {
		if sweeper == nil {
			return fmt.Errorf("sweeper not configured")
		}
		queued, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}
		logger.WithComponent("tasks").WithField("queued", queued).Info("enrichment retry sweep finished")
		return nil
	}
}

func NewRetryEnrichmentQueue(sweeper *Sweeper) backlite.Queue {
	return backlite.NewQueue(RetryEnrichmentProcessor(sweeper))
}
