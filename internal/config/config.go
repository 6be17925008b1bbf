package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Logging
		Tasks
		Auth
		Media
		Enrichment
		Search
		Redis
		Scheduler
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Logging struct {
		Level  string
		Format string // "text" or "json"
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Bearer tokens for the JSON API
		JWTSecret string
		JWTExpiry time.Duration

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Media struct {
		Backend       MediaBackend
		Dir           string
		BaseURL       string
		S3Bucket      string
		S3Region      string
		S3Endpoint    string // Optional custom endpoint (MinIO, LocalStack)
		S3AccessKey   string
		S3SecretKey   string
		PresignExpiry time.Duration
		MaxUploadSize int64
	}
	Enrichment struct {
		Enabled           bool
		WikipediaBaseURL  string
		LLMBaseURL        string
		LLMAPIKey         string
		LLMModel          string
		TTSBaseURL        string
		TTSAPIKey         string
		TTSModel          string
		TTSVoice          string
		RequestsPerSecond float64
		MaxAttempts       int
	}
	Search struct {
		Enabled  bool
		DataPath string
	}
	Redis struct {
		Addr     string // Empty disables redis; login limits stay in memory
		Password string
		DB       int
	}
	Scheduler struct {
		EnrichmentRetryEnabled  bool
		EnrichmentRetrySchedule string // Cron format: "*/30 * * * *" = every 30 minutes
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_jwt_secret", "")           // Falls back to the session secret
	v.SetDefault("auth_jwt_expiry", "168h")       // 7 days
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Media defaults
	v.SetDefault("media_backend", string(MediaBackendLocal))
	v.SetDefault("media_dir", DefaultMediaDir)
	v.SetDefault("media_base_url", "/media")
	v.SetDefault("media_s3_region", "us-east-1")
	v.SetDefault("media_presign_expiry", "1h")
	v.SetDefault("media_max_upload_size", 10<<20)

	// Enrichment defaults
	v.SetDefault("enrichment_enabled", true)
	v.SetDefault("enrichment_wikipedia_base_url", "https://en.wikipedia.org/api/rest_v1")
	v.SetDefault("enrichment_llm_base_url", "https://api.openai.com/v1")
	v.SetDefault("enrichment_llm_model", "gpt-4o-mini")
	v.SetDefault("enrichment_tts_base_url", "https://api.openai.com/v1")
	v.SetDefault("enrichment_tts_model", "tts-1")
	v.SetDefault("enrichment_tts_voice", "alloy")
	v.SetDefault("enrichment_requests_per_second", 1.0)
	v.SetDefault("enrichment_max_attempts", 5)

	v.SetDefault("search_enabled", true)
	v.SetDefault("search_data_path", DefaultSearchDir)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("enrichment_retry_enabled", true)
	v.SetDefault("enrichment_retry_schedule", "*/30 * * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			JWTExpiry:        v.GetDuration("AUTH_JWT_EXPIRY"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Media: Media{
			Backend:       MediaBackend(v.GetString("MEDIA_BACKEND")),
			Dir:           v.GetString("MEDIA_DIR"),
			BaseURL:       v.GetString("MEDIA_BASE_URL"),
			S3Bucket:      v.GetString("MEDIA_S3_BUCKET"),
			S3Region:      v.GetString("MEDIA_S3_REGION"),
			S3Endpoint:    v.GetString("MEDIA_S3_ENDPOINT"),
			S3AccessKey:   v.GetString("MEDIA_S3_ACCESS_KEY"),
			S3SecretKey:   v.GetString("MEDIA_S3_SECRET_KEY"),
			PresignExpiry: v.GetDuration("MEDIA_PRESIGN_EXPIRY"),
			MaxUploadSize: v.GetInt64("MEDIA_MAX_UPLOAD_SIZE"),
		},
		Enrichment: Enrichment{
			Enabled:           v.GetBool("ENRICHMENT_ENABLED"),
			WikipediaBaseURL:  v.GetString("ENRICHMENT_WIKIPEDIA_BASE_URL"),
			LLMBaseURL:        v.GetString("ENRICHMENT_LLM_BASE_URL"),
			LLMAPIKey:         v.GetString("ENRICHMENT_LLM_API_KEY"),
			LLMModel:          v.GetString("ENRICHMENT_LLM_MODEL"),
			TTSBaseURL:        v.GetString("ENRICHMENT_TTS_BASE_URL"),
			TTSAPIKey:         v.GetString("ENRICHMENT_TTS_API_KEY"),
			TTSModel:          v.GetString("ENRICHMENT_TTS_MODEL"),
			TTSVoice:          v.GetString("ENRICHMENT_TTS_VOICE"),
			RequestsPerSecond: v.GetFloat64("ENRICHMENT_REQUESTS_PER_SECOND"),
			MaxAttempts:       v.GetInt("ENRICHMENT_MAX_ATTEMPTS"),
		},
		Search: Search{
			Enabled:  v.GetBool("SEARCH_ENABLED"),
			DataPath: v.GetString("SEARCH_DATA_PATH"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Scheduler: Scheduler{
			EnrichmentRetryEnabled:  v.GetBool("ENRICHMENT_RETRY_ENABLED"),
			EnrichmentRetrySchedule: v.GetString("ENRICHMENT_RETRY_SCHEDULE"),
		},
	}
}
