package http

import (
	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/media"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Stores
	Books      BookStore
	Threads    ThreadStore
	Comments   CommentStore
	Categories CategoryStore
	Users      UserStore

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	LoginLimiter   auth.LoginLimiter
	CSRFSecret     []byte
	SecureCookies  bool

	// Media uploads and URL resolution
	Media         media.Store
	MediaPurger   MediaPurger
	MaxUploadSize int64

	// Optional subsystems; nil disables them
	Search     SearchIndex
	Enrichment EnrichmentQueue
	TaskStatus TaskStatusReader
	TaskQueue  QueueState
	Database   Pinger
	Version    string

	// UI paths; a missing templates directory turns every page into JSON
	TemplatesPath string
	StaticPath    string
	MediaPath     string
}
