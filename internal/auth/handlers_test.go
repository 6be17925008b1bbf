package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T, env *testEnv) *gin.Engine {
	t.Helper()
	limiter := NewRateLimiter(RateLimitConfig{MaxAttempts: 10})
	controller := NewAuthController(env.service, env.sessions, limiter, "")
	t.Cleanup(controller.Stop)
	mw := NewMiddleware(env.service, env.sessions)

	router := gin.New()
	router.Use(env.sessions.SessionLoadSave(), mw.Handler())
	router.GET("/accounts/login/", controller.LoginPage)
	router.POST("/accounts/login/", controller.Login)
	router.POST("/accounts/logout/", controller.Logout)
	router.POST("/accounts/signup/", controller.Signup)
	router.POST("/api/auth/token", controller.IssueToken)
	router.GET("/api/me", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, GetUser(c))
	})
	return router
}

func postForm(router http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAuthController_SignupLogsIn(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(t, env)

	rr := postForm(router, "/accounts/signup/", url.Values{
		"username":         {"alice"},
		"password":         {testPassword},
		"password_confirm": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, HomePath, rr.Header().Get("Location"))
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestAuthController_SignupValidationJSON(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(t, env)

	req := httptest.NewRequest(http.MethodPost, "/accounts/signup/",
		strings.NewReader(`{"username":"alice","password":"correct-horse","password_confirm":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Contains(t, body.Details, "password_confirm")
}

func TestAuthController_Login(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	router := newAuthRouter(t, env)

	rr := postForm(router, "/accounts/login/", url.Values{
		"username": {"alice"}, "password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies(), "failed login must not create a session")

	rr = postForm(router, "/accounts/login/", url.Values{
		"username": {"alice"}, "password": {testPassword}, "next": {"/books/3/"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/books/3/", rr.Header().Get("Location"))

	rr = postForm(router, "/accounts/login/", url.Values{
		"username": {"alice"}, "password": {testPassword}, "next": {"//evil.example"},
	})
	assert.Equal(t, HomePath, rr.Header().Get("Location"))
}

func TestAuthController_LoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	controller := NewAuthController(env.service, env.sessions, NewRateLimiter(RateLimitConfig{MaxAttempts: 1}), "")
	defer controller.Stop()

	router := gin.New()
	router.Use(env.sessions.SessionLoadSave())
	router.POST("/api/auth/token", controller.IssueToken)

	body := `{"username":"alice","password":"wrong-password"}`
	for _, want := range []int{http.StatusUnauthorized, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code)
	}
}

func TestAuthController_IssueToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	router := newAuthRouter(t, env)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token",
		strings.NewReader(`{"username":"alice","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthController_Logout(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	router := newAuthRouter(t, env)

	rr := postForm(router, "/accounts/login/", url.Values{"username": {"alice"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	session := rr.Result().Cookies()[0]

	rr = postForm(router, "/accounts/logout/", url.Values{}, session)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(session)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSanitizeRedirectPath(t *testing.T) {
	assert.Equal(t, "/books/1/", sanitizeRedirectPath("/books/1/"))
	assert.Equal(t, HomePath, sanitizeRedirectPath(""))
	assert.Equal(t, HomePath, sanitizeRedirectPath("https://evil.example"))
	assert.Equal(t, HomePath, sanitizeRedirectPath("//evil.example"))
	assert.Equal(t, HomePath, sanitizeRedirectPath("/\\evil"))
}
