package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mrlokans/bookclub/internal/errors"
)

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	var de *domainerrors.Error
	require.True(t, domainerrors.As(err, &de), "expected domain error, got %v", err)
	require.Equal(t, domainerrors.CodeValidation, de.Code)
	details, ok := de.Details.(map[string]string)
	require.True(t, ok, "expected field details, got %#v", de.Details)
	return details
}

func TestService_Register(t *testing.T) {
	env := newTestEnv(t)

	user := env.register(t, "alice")
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, testPassword, user.PasswordHash)

	_, err := env.service.Register(SignupInput{Username: "alice", Password: testPassword, PasswordConfirm: testPassword})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestService_Register_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		input SignupInput
		field string
	}{
		{"mismatched confirmation", SignupInput{Username: "bob", Password: testPassword, PasswordConfirm: "something-else"}, "password_confirm"},
		{"short password", SignupInput{Username: "bob", Password: "short", PasswordConfirm: "short"}, "password"},
		{"invalid username", SignupInput{Username: "bob smith", Password: testPassword, PasswordConfirm: testPassword}, "username"},
		{"missing username", SignupInput{Password: testPassword, PasswordConfirm: testPassword}, "username"},
		{"invalid email", SignupInput{Username: "bob", Email: "not-an-email", Password: testPassword, PasswordConfirm: testPassword}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Register(tt.input)
			details := validationDetails(t, err)
			assert.Contains(t, details, tt.field)
		})
	}

	exists, err := env.users.UsernameExists("bob")
	require.NoError(t, err)
	assert.False(t, exists, "failed signups must not create users")
}

func TestService_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	user, err := env.service.Authenticate("alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotNil(t, user.LastLoginAt)

	_, err = env.service.Authenticate("alice", "wrong-password")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))

	_, err = env.service.Authenticate("nobody", testPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestService_Authenticate_Lockout(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	for i := 0; i < env.cfg.MaxLoginAttempts; i++ {
		_, err := env.service.Authenticate("alice", "wrong-password")
		require.Error(t, err)
	}

	_, err := env.service.Authenticate("alice", testPassword)
	assert.True(t, errors.Is(err, ErrAccountLocked))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrRateLimited))
}

func TestService_Authenticate_ExpiredLockoutStartsOver(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	now := time.Now()
	env.service.now = func() time.Time { return now }
	for i := 0; i < env.cfg.MaxLoginAttempts; i++ {
		_, err := env.service.Authenticate("alice", "wrong-password")
		require.Error(t, err)
	}
	_, err := env.service.Authenticate("alice", testPassword)
	require.True(t, errors.Is(err, ErrAccountLocked))

	now = now.Add(env.cfg.LockoutDuration + time.Second)

	// A single typo after the lock expires is just one failure, not a new lockout.
	_, err = env.service.Authenticate("alice", "wrong-password")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	user, err := env.users.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, user.FailedLoginCount)
	assert.Nil(t, user.LockedUntil)

	_, err = env.service.Authenticate("alice", testPassword)
	assert.NoError(t, err)
}

func TestService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	err := env.service.ChangePassword(user.ID, PasswordChangeInput{
		OldPassword: "wrong-password", NewPassword: "new-password-1", PasswordConfirm: "new-password-1",
	})
	assert.Contains(t, validationDetails(t, err), "old_password")

	err = env.service.ChangePassword(user.ID, PasswordChangeInput{
		OldPassword: testPassword, NewPassword: "new-password-1", PasswordConfirm: "new-password-2",
	})
	assert.Contains(t, validationDetails(t, err), "password_confirm")

	err = env.service.ChangePassword(user.ID, PasswordChangeInput{
		OldPassword: testPassword, NewPassword: "new-password-1", PasswordConfirm: "new-password-1",
	})
	require.NoError(t, err)

	_, err = env.service.Authenticate("alice", testPassword)
	assert.Error(t, err)
	_, err = env.service.Authenticate("alice", "new-password-1")
	assert.NoError(t, err)
}

func TestService_Tokens(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	token, _, err := env.service.IssueToken(user)
	require.NoError(t, err)

	resolved, err := env.service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	_, err = env.service.DeleteAccount(user.ID)
	require.NoError(t, err)

	_, err = env.service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
