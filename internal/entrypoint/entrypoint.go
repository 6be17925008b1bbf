package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/config"
	http_controllers "github.com/mrlokans/bookclub/internal/http"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/scheduler"
	"github.com/mrlokans/bookclub/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	log := logger.WithComponent("entrypoint")
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT; SIGKILL can't be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infof("Shutdown Server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server Shutdown")
	}

	// Workers stop after the server so in-flight requests can still enqueue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info("Server exiting")
}

func Run(cfg *config.Config, version string) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.WithComponent("entrypoint")
	log.Infof("Starting BookClub v%s", version)

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.FromConfig(cfg.Tasks)
		tasks.SetQueueDefaults(taskCfg)

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing task client")
			}
		}()
	}

	var enqueuer *tasks.Enqueuer
	if taskClient != nil && app.Enricher.Enabled() {
		enqueuer = tasks.NewEnqueuer(taskClient, app.Books)
	} else if cfg.Enrichment.Enabled {
		log.Warn("Enrichment is enabled but no providers are configured or the task queue is off; books will not be enriched")
	}
	purger := tasks.NewMediaPurger(taskClient, app.Media)
	var sweeper *tasks.Sweeper
	if enqueuer != nil {
		sweeper = tasks.NewSweeper(app.Books, enqueuer, cfg.Enrichment.MaxAttempts)
	}

	var retryScheduler *scheduler.EnrichmentRetryScheduler
	if taskClient != nil {
		taskClient.Register(
			tasks.NewEnrichBookQueue(app.Enricher),
			tasks.NewPurgeMediaQueue(app.Media),
			tasks.NewRetryEnrichmentQueue(sweeper),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if sweeper != nil && cfg.Scheduler.EnrichmentRetryEnabled {
			retryScheduler = scheduler.NewEnrichmentRetryScheduler(cfg.Scheduler.EnrichmentRetrySchedule, func(ctx context.Context) error {
				_, err := taskClient.Add(tasks.RetryEnrichmentTask{}).Save()
				return err
			})
			if err := retryScheduler.Start(taskCtx); err != nil {
				log.WithError(err).Error("Failed to start enrichment retry scheduler")
				retryScheduler = nil
			}
		}
	}

	// Authentication
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = cfg.Auth.SessionSecret
	}
	csrfSecret, err := sessionSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	if cfg.Auth.SessionSecret == "" {
		log.Warn("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}
	if jwtSecret == "" {
		jwtSecret = hex.EncodeToString(csrfSecret)
	}
	authService := auth.NewService(app.Users, auth.NewTokenIssuer(jwtSecret, cfg.Auth.JWTExpiry), cfg.Auth)

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	defer sessionManager.Close()

	routerCfg := http_controllers.RouterConfig{
		Books:          app.Books,
		Threads:        app.Threads,
		Comments:       app.Comments,
		Categories:     app.Categories,
		Users:          app.Users,
		AuthService:    authService,
		SessionManager: sessionManager,
		LoginLimiter:   auth.NewLoginLimiter(cfg.Auth, cfg.Redis),
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Media:          app.Media,
		MediaPurger:    purger,
		MaxUploadSize:  cfg.Media.MaxUploadSize,
		Database:       app.DB,
		Version:        version,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
	}
	if app.Search != nil {
		routerCfg.Search = app.Search
	}
	if enqueuer != nil {
		routerCfg.Enrichment = enqueuer
	}
	if taskClient != nil {
		routerCfg.TaskStatus = taskClient
		routerCfg.TaskQueue = taskClient
	}
	if cfg.Media.Backend == config.MediaBackendLocal {
		routerCfg.MediaPath = cfg.Media.Dir
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if retryScheduler != nil {
			retryScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		router.Close()
	}

	Serve(router, cfg, onShutdown)
}

// sessionSecret decodes a configured secret as hex, falling back to the raw
// bytes, and generates a random one when none is set.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}
