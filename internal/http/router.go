package http

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/logger"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"subtract": func(a, b int) int {
		return a - b
	},
}

// loadTemplates parses <path>/*.html. A missing or empty directory is not an
// error: pages then answer with JSON.
func loadTemplates(path string) *template.Template {
	if path == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.html"))
	if err != nil || len(matches) == 0 {
		return nil
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFiles(matches...)
	if err != nil {
		logger.Log.WithError(err).WithField("path", path).Error("failed to parse templates, serving JSON only")
		return nil
	}
	return tmpl
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Router is the configured engine plus the controllers that own resources
// needing release on shutdown.
type Router struct {
	*gin.Engine
	auth *auth.AuthController
}

// Close releases the login limiter.
func (r *Router) Close() {
	r.auth.Stop()
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *Router {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	router.Use(authMiddleware.Handler())
	requireAuth := authMiddleware.RequireAuth()

	tmpl := loadTemplates(cfg.TemplatesPath)
	html := tmpl != nil
	if html {
		router.SetHTMLTemplate(tmpl)
	}

	if cfg.StaticPath != "" && dirExists(cfg.StaticPath) {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.MediaPath != "" && dirExists(cfg.MediaPath) {
		router.Static("/media", cfg.MediaPath)
	}

	health := NewHealthController(cfg.Database, cfg.Search, cfg.TaskQueue, cfg.Version)
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.LoginLimiter, cfg.TemplatesPath)
	books := NewBooksController(cfg, html)
	threads := NewThreadsController(cfg, html)
	comments := NewCommentsController(cfg, html)
	categories := NewCategoriesController(cfg.Categories, html)
	profiles := NewProfileController(cfg, html)
	searchController := NewSearchController(cfg.Search)
	tasksController := NewTasksController(cfg.TaskStatus)

	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, auth.HomePath)
	})

	// Accounts
	accounts := router.Group("/accounts")
	{
		accounts.GET("/login/", authController.LoginPage)
		accounts.POST("/login/", authController.Login)
		accounts.GET("/logout/", authController.Logout)
		accounts.POST("/logout/", authController.Logout)
		accounts.GET("/signup/", authController.SignupPage)
		accounts.POST("/signup/", authController.Signup)

		accounts.GET("/profile/:username/", profiles.ProfilePage)
		accounts.GET("/followers/:username/", profiles.Followers)
		accounts.GET("/following/:username/", profiles.Following)

		own := accounts.Group("", requireAuth)
		own.GET("/profile/", profiles.ProfilePage)
		own.GET("/followers/", profiles.Followers)
		own.GET("/following/", profiles.Following)
		own.GET("/update/", profiles.EditPage)
		own.POST("/update/", profiles.UpdateProfile)
		own.GET("/password/", profiles.PasswordPage)
		own.POST("/password/", profiles.ChangePassword)
		own.POST("/delete/", profiles.DeleteAccount)
		own.POST("/follow/:user_id/", profiles.Follow)
	}

	// Book, thread and comment pages
	pages := router.Group("/books")
	{
		pages.GET("/", books.List)
		pages.GET("/category/", categories.List)
		pages.GET("/:id/", books.Detail)
		pages.GET("/:id/threads/:tid/", threads.Detail)

		w := pages.Group("", requireAuth)
		w.GET("/create/", books.NewPage)
		w.POST("/create/", books.Create)
		w.POST("/category/", categories.Create)
		w.GET("/:id/update/", books.EditPage)
		w.POST("/:id/update/", books.Update)
		w.POST("/:id/delete/", books.Delete)
		w.GET("/:id/create/", threads.NewPage)
		w.POST("/:id/create/", threads.Create)
		w.GET("/:id/threads/:tid/update/", threads.EditPage)
		w.POST("/:id/threads/:tid/update/", threads.Update)
		w.POST("/:id/threads/:tid/delete/", threads.Delete)
		w.POST("/:id/threads/:tid/like/", threads.Like)
		w.POST("/:id/threads/:tid/comments/", comments.Create)
		w.POST("/:id/threads/:tid/comments/:cid/update/", comments.Update)
		w.POST("/:id/threads/:tid/comments/:cid/delete/", comments.Delete)
	}

	// JSON API
	api := router.Group("/api")
	{
		api.POST("/auth/token", authController.IssueToken)

		api.GET("/books", books.List)
		api.GET("/books/:id", books.Detail)
		api.GET("/books/:id/threads", threads.ListByBook)
		api.GET("/threads/:id", threads.Detail)
		api.GET("/threads/:id/comments", comments.List)
		api.GET("/categories", categories.List)
		api.GET("/users/:username", profiles.ProfilePage)
		api.GET("/users/:username/followers", profiles.Followers)
		api.GET("/users/:username/following", profiles.Following)
		api.GET("/search", searchController.Search)

		protected := api.Group("", requireAuth)
		protected.GET("/me", profiles.Me)
		protected.PUT("/me", profiles.UpdateProfile)
		protected.DELETE("/me", profiles.DeleteAccount)
		protected.POST("/me/password", profiles.ChangePassword)

		protected.POST("/books", books.Create)
		protected.PUT("/books/:id", books.Update)
		protected.DELETE("/books/:id", books.Delete)
		protected.POST("/books/:id/enrich", books.Enrich)
		protected.POST("/books/:id/threads", threads.Create)

		protected.PUT("/threads/:id", threads.Update)
		protected.DELETE("/threads/:id", threads.Delete)
		protected.POST("/threads/:id/like", threads.Like)
		protected.POST("/threads/:id/comments", comments.Create)
		protected.PUT("/threads/:id/comments/:cid", comments.Update)
		protected.DELETE("/threads/:id/comments/:cid", comments.Delete)

		protected.POST("/categories", categories.Create)
		// The follow target shares the :username segment with the profile routes.
		protected.POST("/users/:username/follow", profiles.Follow)

		protected.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return &Router{Engine: router, auth: authController}
}
