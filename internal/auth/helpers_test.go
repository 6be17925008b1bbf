package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/database/users"
	"github.com/mrlokans/bookclub/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse"

type testEnv struct {
	db       *database.Database
	users    *users.Repository
	service  *Service
	sessions *SessionManager
	cfg      config.Auth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Auth{
		SessionLifetime:  24 * time.Hour,
		BcryptCost:       4, // Low cost for faster tests
		SecureCookies:    false,
		JWTSecret:        "test-jwt-secret",
		JWTExpiry:        time.Hour,
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Minute,
	}

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	t.Cleanup(sm.Close)

	repo := users.NewRepository(db.DB)
	return &testEnv{
		db:       db,
		users:    repo,
		service:  NewService(repo, NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry), cfg),
		sessions: sm,
		cfg:      cfg,
	}
}

func (e *testEnv) register(t *testing.T, username string) *entities.User {
	t.Helper()
	user, err := e.service.Register(SignupInput{
		Username:        username,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return user
}
