package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/validation"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid    = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
)

// defaultLockoutThreshold applies when MaxLoginAttempts is not configured.
const defaultLockoutThreshold = 5

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(user *entities.User) error
	GetByID(id uint) (*entities.User, error)
	GetByUsername(username string) (*entities.User, error)
	UpdatePasswordHash(id uint, hash string) error
	RecordLoginFailure(id uint, failedCount int, lockedUntil *time.Time) error
	RecordLoginSuccess(id uint, at time.Time) error
	Delete(id uint) (database.Removed, error)
}

// SignupInput is the registration form.
type SignupInput struct {
	Username        string `form:"username" json:"username" validate:"required,min=3,max=64"`
	Email           string `form:"email" json:"email" validate:"omitempty,email,max=254"`
	Password        string `form:"password" json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm" validate:"required,eqfield=Password"`
}

// PasswordChangeInput is the password change form.
type PasswordChangeInput struct {
	OldPassword     string `form:"old_password" json:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" json:"new_password" validate:"required,min=8,max=72"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm" validate:"required,eqfield=NewPassword"`
}

// Service handles authentication and account lifecycle.
type Service struct {
	users     UserStore
	tokens    *TokenIssuer
	validator *validation.Validator
	config    config.Auth
	now       func() time.Time
}

// NewService creates a new authentication service.
func NewService(users UserStore, tokens *TokenIssuer, cfg config.Auth) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		validator: validation.New(),
		config:    cfg,
		now:       time.Now,
	}
}

// Register validates the signup form and creates the user.
func (s *Service) Register(input SignupInput) (*entities.User, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if !usernamePattern.MatchString(input.Username) {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"username": ErrUsernameInvalid.Error(),
		})
	}

	passwordHash, err := HashPassword(input.Password, s.config.BcryptCost)
	if err != nil {
		return nil, passwordError("password", err)
	}

	user := &entities.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
// Accounts lock after too many consecutive failures.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.Wrap(ErrInvalidCredentials, domainerrors.CodeUnauthorized, ErrInvalidCredentials.Error())
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil {
		if now.Before(*user.LockedUntil) {
			return nil, domainerrors.Wrap(ErrAccountLocked, domainerrors.CodeRateLimited, ErrAccountLocked.Error())
		}
		// The lockout has served its time; count failures afresh.
		user.FailedLoginCount = 0
		user.LockedUntil = nil
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user)
		return nil, domainerrors.Wrap(ErrInvalidCredentials, domainerrors.CodeUnauthorized, ErrInvalidCredentials.Error())
	}

	if err := s.users.RecordLoginSuccess(user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	threshold := s.config.MaxLoginAttempts
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}

	var lockedUntil *time.Time
	if user.FailedLoginCount >= threshold {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		until := s.now().Add(lockoutDuration)
		lockedUntil = &until
	}

	if err := s.users.RecordLoginFailure(user.ID, user.FailedLoginCount, lockedUntil); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("failed to record failed login")
	}
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.users.GetByID(id)
}

// IssueToken creates a bearer token for the user.
func (s *Service) IssueToken(user *entities.User) (string, time.Time, error) {
	return s.tokens.Issue(user.ID, user.Username)
}

// ValidateToken checks a bearer token and returns the user it belongs to.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the old password and stores the new one.
func (s *Service) ChangePassword(userID uint, input PasswordChangeInput) error {
	if err := s.validator.Validate(input); err != nil {
		return err
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(input.OldPassword, user.PasswordHash); err != nil {
		return passwordError("old_password", err)
	}

	newHash, err := HashPassword(input.NewPassword, s.config.BcryptCost)
	if err != nil {
		return passwordError("new_password", err)
	}
	return s.users.UpdatePasswordHash(userID, newHash)
}

// DeleteAccount removes the user and everything they own.
func (s *Service) DeleteAccount(userID uint) (database.Removed, error) {
	return s.users.Delete(userID)
}

// passwordError turns password policy failures into field-level validation errors.
func passwordError(field string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidPassword):
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{field: "is incorrect"})
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong), errors.Is(err, ErrPasswordMismatch):
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{field: err.Error()})
	}
	return err
}
