package auth

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/validation"
)

// HomePath is where browsers land after login, signup and logout.
const HomePath = "/books/"

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative URLs (//evil.com), schemes and backslash tricks
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to HomePath.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return HomePath
}

// LoginInput is the login and token request body.
type LoginInput struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
	Next     string `form:"next" json:"next"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// AuthController serves login, logout, signup and API token exchange.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	limiter        LoginLimiter
	validator      *validation.Validator
}

// NewAuthController creates the controller. Templates under
// <templatesPath>/accounts are optional; without them every response is JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, limiter LoginLimiter, templatesPath string) *AuthController {
	var tmpl *template.Template
	if templatesPath != "" {
		parsed, err := template.ParseGlob(filepath.Join(templatesPath, "accounts", "*.html"))
		if err == nil {
			tmpl = parsed
		}
	}

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		limiter:        limiter,
		validator:      validation.New(),
	}
}

// NewLoginLimiter picks the Redis limiter when an address is configured.
func NewLoginLimiter(authCfg config.Auth, redisCfg config.Redis) LoginLimiter {
	cfg := RateLimitConfig{
		MaxAttempts:     authCfg.MaxLoginAttempts,
		WindowDuration:  authCfg.RateLimitWindow,
		LockoutDuration: authCfg.LockoutDuration,
	}
	if redisCfg.Addr != "" {
		logger.Log.WithField("addr", redisCfg.Addr).Info("Using redis for login rate limiting")
		return NewRedisRateLimiter(redisCfg.Addr, redisCfg.Password, redisCfg.DB, cfg)
	}
	return NewRateLimiter(cfg)
}

// Stop releases the limiter.
func (ac *AuthController) Stop() {
	if ac.limiter != nil {
		ac.limiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, HomePath)
		return
	}
	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Login",
		"Next":  sanitizeRedirectPath(c.Query("next")),
		"Error": c.Query("error"),
	})
}

// Login handles form and JSON login submissions.
func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	_ = c.ShouldBind(&input)
	next := sanitizeRedirectPath(input.Next)

	user, ok := ac.authenticate(c, input)
	if !ok {
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			logger.Log.WithError(err).Error("failed to create session")
			ac.fail(c, "login.html", gin.H{"Title": "Login", "Next": next, "Username": input.Username},
				domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to create session"))
			return
		}
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// authenticate runs rate limiting and credential checks, writing the error
// response itself on failure.
func (ac *AuthController) authenticate(c *gin.Context, input LoginInput) (*entities.User, bool) {
	data := gin.H{"Title": "Login", "Next": sanitizeRedirectPath(input.Next), "Username": input.Username}

	if err := ac.validator.Validate(input); err != nil {
		ac.fail(c, "login.html", data, err)
		return nil, false
	}

	ctx := c.Request.Context()
	clientIP := c.ClientIP()

	if ac.limiter != nil {
		if allowed, retryAfter := ac.limiter.Allow(ctx, clientIP, input.Username); !allowed {
			c.Header("Retry-After", retryAfter.Round(time.Second).String())
			ac.fail(c, "login.html", data, domainerrors.RateLimited("too many login attempts, try again later"))
			return nil, false
		}
	}

	user, err := ac.service.Authenticate(input.Username, input.Password)
	if err != nil {
		if ac.limiter != nil {
			ac.limiter.RecordFailure(ctx, clientIP, input.Username)
		}
		logger.Log.WithFields(map[string]any{"username": input.Username, "ip": clientIP}).Info("failed login")
		ac.fail(c, "login.html", data, err)
		return nil, false
	}

	if ac.limiter != nil {
		ac.limiter.RecordSuccess(ctx, clientIP, input.Username)
	}
	return user, true
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	c.Redirect(http.StatusSeeOther, HomePath)
}

// SignupPage renders the registration form.
func (ac *AuthController) SignupPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, HomePath)
		return
	}
	ac.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up"})
}

// Signup registers a user and logs them in.
func (ac *AuthController) Signup(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusSeeOther, HomePath)
		return
	}

	var input SignupInput
	_ = c.ShouldBind(&input)

	user, err := ac.service.Register(input)
	if err != nil {
		ac.fail(c, "signup.html", gin.H{"Title": "Sign up", "Username": input.Username, "Email": input.Email}, err)
		return
	}
	logger.Log.WithField("user_id", user.ID).Info("user registered")

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			logger.Log.WithError(err).Error("failed to create session after signup")
		}
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusCreated, gin.H{"user": user})
		return
	}
	c.Redirect(http.StatusSeeOther, HomePath)
}

// IssueToken exchanges username and password for a bearer token.
func (ac *AuthController) IssueToken(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Code: string(domainerrors.CodeValidation)})
		return
	}

	user, ok := ac.authenticate(c, input)
	if !ok {
		return
	}

	token, expiresAt, err := ac.service.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed to issue token")
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error", Code: string(domainerrors.CodeInternal)})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// fail renders the form again with the error for browsers, or the coded
// error JSON for API clients.
func (ac *AuthController) fail(c *gin.Context, name string, data gin.H, err error) {
	status := domainerrors.StatusOf(err)
	body := errorBody{Error: "internal server error", Code: string(domainerrors.CodeInternal)}

	var de *domainerrors.Error
	if domainerrors.As(err, &de) && de.Code != domainerrors.CodeInternal {
		body = errorBody{Error: de.Message, Code: string(de.Code), Details: de.Details}
	} else {
		logger.Log.WithError(err).Error("auth request failed")
	}

	if IsAPIRequest(c) || ac.templates == nil {
		c.JSON(status, body)
		return
	}

	data["Error"] = body.Error
	data["Errors"] = body.Details
	ac.render(c, status, name, data)
}

// render executes an accounts template, falling back to JSON for API
// clients or when templates are not installed.
func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	data["CSRFField"] = CSRFTokenField(c)
	if ac.templates == nil || IsAPIRequest(c) {
		delete(data, "CSRFField")
		c.JSON(status, data)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		logger.Log.WithError(err).WithField("template", name).Error("template error")
	}
}
