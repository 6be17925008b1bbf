package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/media"
	"github.com/mrlokans/bookclub/internal/ratelimit"
)

type SummaryProvider interface {
	SummaryFor(ctx context.Context, author, title string) (*Summary, error)
}

type AuthorProvider interface {
	AuthorProfile(ctx context.Context, book *entities.Book, summary *Summary) (*AuthorProfile, error)
}

type ScriptWriter interface {
	NarrationScript(ctx context.Context, book *entities.Book, summary *Summary) (string, error)
}

type Narrator interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// BookStore loads books and persists enrichment columns.
type BookStore interface {
	GetByID(id uint) (*entities.Book, error)
	SaveEnrichment(book *entities.Book) error
}

type ImageFetcher interface {
	Fetch(ctx context.Context, prefix, url string) (key, hash string, err error)
}

// Providers are the external services of the chain. A nil provider is
// disabled and its step is skipped.
type Providers struct {
	Summaries SummaryProvider
	Authors   AuthorProvider
	Scripts   ScriptWriter
	Narrator  Narrator
}

// ProvidersFromConfig builds the configured providers sharing one outbound
// limiter. Providers without a base URL or API key stay nil.
func ProvidersFromConfig(cfg config.Enrichment, limiter *ratelimit.KeyedRateLimiter) Providers {
	var p Providers
	if !cfg.Enabled {
		return p
	}
	if cfg.WikipediaBaseURL != "" {
		p.Summaries = NewWikipediaClient(cfg.WikipediaBaseURL, limiter)
	}
	if cfg.LLMBaseURL != "" && cfg.LLMAPIKey != "" {
		llm := NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, limiter)
		p.Authors = llm
		p.Scripts = llm
	}
	if cfg.TTSBaseURL != "" && cfg.TTSAPIKey != "" {
		p.Narrator = NewSpeechClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel, cfg.TTSVoice, limiter)
	}
	return p
}

// Any reports whether at least one provider is configured.
func (p Providers) Any() bool {
	return p.Summaries != nil || p.Authors != nil || p.Narrator != nil
}

// Step outcomes.
const (
	OutcomeDone    = "done"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

type StepResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type Result struct {
	BookID uint                      `json:"book_id"`
	Status entities.EnrichmentStatus `json:"status"`
	Steps  []StepResult              `json:"steps"`
}

func (r *Result) step(name, outcome string, err error) {
	s := StepResult{Name: name, Outcome: outcome}
	if err != nil {
		s.Error = err.Error()
	}
	r.Steps = append(r.Steps, s)
}

// Enricher runs the chain for one book: summary, then author info, then
// narration. Each step skips work already present on the book so a retry
// resumes where the previous run stopped. The book itself is never rolled back.
type Enricher struct {
	books     BookStore
	store     media.Store
	fetcher   ImageFetcher
	providers Providers
	now       func() time.Time
}

func NewEnricher(books BookStore, store media.Store, fetcher ImageFetcher, providers Providers) *Enricher {
	return &Enricher{
		books:     books,
		store:     store,
		fetcher:   fetcher,
		providers: providers,
		now:       time.Now,
	}
}

// Enabled reports whether any step can do work.
func (e *Enricher) Enabled() bool {
	return e.providers.Any()
}

// Enrich runs the chain. It returns an error only when the author step
// failed; the book is then saved with status failed. A narration failure
// leaves the book partial and is not an error.
func (e *Enricher) Enrich(ctx context.Context, bookID uint) (*Result, error) {
	book, err := e.books.GetByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	log := logger.WithComponent("enrichment").WithField("book_id", bookID)
	result := &Result{BookID: bookID}

	summary := e.summarize(ctx, book, result)

	if err := e.describeAuthor(ctx, book, summary, result); err != nil {
		book.EnrichmentStatus = entities.EnrichmentStatusFailed
		book.EnrichmentError = err.Error()
		result.Status = book.EnrichmentStatus
		if saveErr := e.books.SaveEnrichment(book); saveErr != nil {
			return result, errors.Join(err, fmt.Errorf("save enrichment: %w", saveErr))
		}
		log.WithError(err).Warn("author enrichment failed")
		return result, err
	}

	book.EnrichmentStatus = entities.EnrichmentStatusComplete
	book.EnrichmentError = ""
	if err := e.narrate(ctx, book, summary, result); err != nil {
		book.EnrichmentStatus = entities.EnrichmentStatusPartial
		book.EnrichmentError = err.Error()
		log.WithError(err).Warn("narration failed, keeping author info")
	}

	now := e.now()
	book.EnrichedAt = &now
	result.Status = book.EnrichmentStatus
	if err := e.books.SaveEnrichment(book); err != nil {
		return result, fmt.Errorf("save enrichment: %w", err)
	}
	log.WithField("status", book.EnrichmentStatus).Info("book enriched")
	return result, nil
}

// summarize never fails the chain.
func (e *Enricher) summarize(ctx context.Context, book *entities.Book, result *Result) *Summary {
	if e.providers.Summaries == nil {
		result.step("summary", OutcomeSkipped, nil)
		return nil
	}
	summary, err := e.providers.Summaries.SummaryFor(ctx, book.Author, book.Title)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WithComponent("enrichment").WithError(err).WithField("book_id", book.ID).Warn("summary lookup failed")
		}
		result.step("summary", OutcomeFailed, err)
		return nil
	}

	if book.AuthorProfileImage == "" && summary.ThumbnailURL != "" {
		book.AuthorProfileImage = summary.ThumbnailURL
		if e.fetcher != nil {
			if key, _, err := e.fetcher.Fetch(ctx, media.PrefixAuthors, summary.ThumbnailURL); err == nil {
				book.AuthorProfileImage = key
			} else {
				logger.WithComponent("enrichment").WithError(err).Debug("keeping remote author image")
			}
		}
	}
	result.step("summary", OutcomeDone, nil)
	return summary
}

func (e *Enricher) describeAuthor(ctx context.Context, book *entities.Book, summary *Summary, result *Result) error {
	if book.AuthorInfo != "" || e.providers.Authors == nil {
		result.step("author_info", OutcomeSkipped, nil)
		return nil
	}
	profile, err := e.providers.Authors.AuthorProfile(ctx, book, summary)
	if err != nil {
		result.step("author_info", OutcomeFailed, err)
		return fmt.Errorf("author info: %w", err)
	}
	book.AuthorInfo = profile.Info
	book.AuthorWorks = profile.Works
	result.step("author_info", OutcomeDone, nil)
	return nil
}

func (e *Enricher) narrate(ctx context.Context, book *entities.Book, summary *Summary, result *Result) error {
	if book.AudioFile != "" || e.providers.Narrator == nil || e.store == nil {
		result.step("narration", OutcomeSkipped, nil)
		return nil
	}

	script := ""
	if e.providers.Scripts != nil {
		s, err := e.providers.Scripts.NarrationScript(ctx, book, summary)
		if err != nil {
			logger.WithComponent("enrichment").WithError(err).Debug("falling back to template script")
		}
		script = s
	}
	if strings.TrimSpace(script) == "" {
		script = templateScript(book, summary)
	}

	audio, err := e.providers.Narrator.Synthesize(ctx, script)
	if err != nil {
		result.step("narration", OutcomeFailed, err)
		return fmt.Errorf("narration: %w", err)
	}
	key, err := media.SaveAudio(ctx, e.store, audio)
	if err != nil {
		result.step("narration", OutcomeFailed, err)
		return fmt.Errorf("store narration: %w", err)
	}
	book.AudioFile = key
	result.step("narration", OutcomeDone, nil)
	return nil
}

// templateScript is the narration used when no script writer is available.
func templateScript(book *entities.Book, summary *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", book.Title)
	if book.Author != "" {
		fmt.Fprintf(&b, ", by %s.", book.Author)
	} else {
		b.WriteString(".")
	}
	switch {
	case book.AuthorInfo != "":
		b.WriteString(" " + book.AuthorInfo)
	case summary != nil && summary.Markdown != "":
		b.WriteString(" " + summary.Markdown)
	}
	if book.AuthorWorks != "" {
		fmt.Fprintf(&b, " Notable works: %s.", strings.TrimSuffix(book.AuthorWorks, "."))
	}
	if book.Description != "" {
		b.WriteString(" " + book.Description)
	}
	return b.String()
}
