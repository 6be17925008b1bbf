package entrypoint

import (
	"context"
	"fmt"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/database/books"
	"github.com/mrlokans/bookclub/internal/database/categories"
	"github.com/mrlokans/bookclub/internal/database/comments"
	"github.com/mrlokans/bookclub/internal/database/threads"
	"github.com/mrlokans/bookclub/internal/database/users"
	"github.com/mrlokans/bookclub/internal/enrichment"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/media"
	"github.com/mrlokans/bookclub/internal/ratelimit"
	"github.com/mrlokans/bookclub/internal/search"
)

// App holds the components shared by the HTTP server and the CLI commands.
type App struct {
	Config *config.Config
	DB     *database.Database

	Books      *books.Repository
	Threads    *threads.Repository
	Comments   *comments.Repository
	Categories *categories.Repository
	Users      *users.Repository

	Media    media.Store
	Search   *search.Index // nil when search is disabled
	Enricher *enrichment.Enricher

	limiter *ratelimit.KeyedRateLimiter
}

// NewApp opens the database, media store and search index described by cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.WithComponent("entrypoint")

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	app := &App{
		Config:     cfg,
		DB:         db,
		Books:      books.NewRepository(db.DB),
		Threads:    threads.NewRepository(db.DB),
		Comments:   comments.NewRepository(db.DB),
		Categories: categories.NewRepository(db.DB),
		Users:      users.NewRepository(db.DB),
	}

	app.Media, err = media.NewStore(ctx, cfg.Media)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("initialize media store: %w", err)
	}
	log.WithField("backend", cfg.Media.Backend).Info("Media store initialized")

	if cfg.Search.Enabled {
		app.Search, err = search.Open(cfg.Search.DataPath)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open search index: %w", err)
		}
		log.WithField("path", cfg.Search.DataPath).Info("Search index opened")
	}

	var providers enrichment.Providers
	if cfg.Enrichment.Enabled {
		app.limiter = ratelimit.New(cfg.Enrichment.RequestsPerSecond, 1)
		providers = enrichment.ProvidersFromConfig(cfg.Enrichment, app.limiter)
	}
	app.Enricher = enrichment.NewEnricher(app.Books, app.Media, media.NewFetcher(app.Media, cfg.Media.MaxUploadSize), providers)

	return app, nil
}

// Close releases everything NewApp opened.
func (a *App) Close() {
	log := logger.WithComponent("entrypoint")
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Search != nil {
		if err := a.Search.Close(); err != nil {
			log.WithError(err).Warn("Error closing search index")
		}
	}
	if err := a.DB.Close(); err != nil {
		log.WithError(err).Warn("Error closing database")
	}
}

// Reindex rebuilds the search index from the database.
func (a *App) Reindex() (int, error) {
	if a.Search == nil {
		return 0, fmt.Errorf("search is disabled")
	}
	allBooks, err := a.Books.List(books.Filter{})
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}
	allThreads, err := a.Threads.ListAll()
	if err != nil {
		return 0, fmt.Errorf("list threads: %w", err)
	}
	return a.Search.Reindex(allBooks, allThreads)
}
