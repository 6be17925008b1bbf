package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/config"
)

func TestNewSessionManager_CreatesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").WillReturnResult(sqlmock.NewResult(0, 0))

	sm, err := NewSessionManager(db, config.Auth{SessionLifetime: time.Hour, SecureCookies: true})
	require.NoError(t, err)
	defer sm.Close()

	assert.Equal(t, time.Hour, sm.Lifetime)
	assert.Equal(t, 30*time.Minute, sm.IdleTimeout)
	assert.True(t, sm.Cookie.Secure)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSessionManager_SchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").WillReturnError(errors.New("disk full"))

	_, err = NewSessionManager(db, config.Auth{SessionLifetime: time.Hour})
	assert.ErrorContains(t, err, "disk full")
}

func TestSessionLoadSave_PersistsLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	router := gin.New()
	router.Use(env.sessions.SessionLoadSave())
	router.POST("/login", func(c *gin.Context) {
		require.NoError(t, env.sessions.CreateSession(c.Request, user))
		c.Redirect(http.StatusSeeOther, "/")
	})
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": env.sessions.GetUserID(c.Request), "username": env.sessions.GetUsername(c.Request)})
	})
	router.POST("/logout", func(c *gin.Context) {
		require.NoError(t, env.sessions.DestroySession(c.Request))
		c.Status(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies, "session cookie must be written on redirect")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.NotEmpty(t, rr.Result().Cookies())
	assert.Empty(t, rr.Result().Cookies()[0].Value)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `"user_id":0`)
}
