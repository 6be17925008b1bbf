// Package auth provides authentication for the web pages and the JSON API.
//
// Browsers authenticate with a session cookie managed by scs and stored in
// the application's sqlite database. API clients exchange credentials for
// an HS256 JWT at POST /api/auth/token and send it as a bearer token.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<32+ bytes>     # CSRF key; generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_JWT_SECRET=<secret>            # Falls back to the session secret
//	AUTH_JWT_EXPIRY=168h                # Bearer token lifetime
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # Failures before lockout
//	REDIS_ADDR=localhost:6379           # Share login limits between instances
//
// # Usage
//
//	svc := auth.NewService(usersRepo, auth.NewTokenIssuer(secret, expiry), cfg.Auth)
//	mw := auth.NewMiddleware(svc, sessions)
//	router.Use(sessions.SessionLoadSave(), mw.Handler())
//	router.POST("/books/create/", mw.RequireAuth(), books.Create)
//
// Extract the caller in handlers:
//
//	userID := auth.GetUserID(c) // AnonymousUserID when not logged in
package auth
