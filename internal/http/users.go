package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/entities"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/logger"
	"github.com/mrlokans/bookclub/internal/validation"
)

// ProfileInput is the profile edit form.
type ProfileInput struct {
	Email       string `form:"email" json:"email" validate:"omitempty,email,max=254"`
	DisplayName string `form:"display_name" json:"display_name" validate:"max=100"`
	Bio         string `form:"bio" json:"bio" validate:"max=2000"`
}

// UserListResponse is the JSON body of follower and following lists.
type UserListResponse struct {
	User  entities.User   `json:"user"`
	Users []entities.User `json:"users"`
	Count int             `json:"count"`
}

// ProfileController handles profiles, follows and account management.
type ProfileController struct {
	responder
	authService *auth.Service
	sessions    *auth.SessionManager
	users       UserStore
	threads     ThreadStore
	urls        mediaURLs
	effects     sideEffects
	validator   *validation.Validator
}

// NewProfileController creates a new ProfileController.
func NewProfileController(cfg RouterConfig, html bool) *ProfileController {
	return &ProfileController{
		responder:   responder{html: html},
		authService: cfg.AuthService,
		sessions:    cfg.SessionManager,
		users:       cfg.Users,
		threads:     cfg.Threads,
		urls:        mediaURLs{store: cfg.Media},
		effects:     sideEffects{index: cfg.Search, purger: cfg.MediaPurger},
		validator:   validation.New(),
	}
}

func profilePath(username string) string {
	return fmt.Sprintf("/accounts/profile/%s/", username)
}

// targetUser resolves the :username path parameter, defaulting to the caller.
func (pc *ProfileController) targetUser(c *gin.Context) (*entities.User, error) {
	if username := c.Param("username"); username != "" {
		return pc.users.GetByUsername(username)
	}
	userID := auth.GetUserID(c)
	if userID == auth.AnonymousUserID {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	return pc.users.GetByID(userID)
}

// Me returns the authenticated user.
func (pc *ProfileController) Me(c *gin.Context) {
	user, err := pc.users.GetByID(auth.GetUserID(c))
	if err != nil {
		pc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ProfilePage shows a user's threads newest first and follow counters.
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	user, err := pc.targetUser(c)
	if err != nil {
		pc.fail(c, err)
		return
	}
	profile, err := pc.buildProfile(c, user)
	if err != nil {
		pc.fail(c, err)
		return
	}
	pc.page(c, http.StatusOK, "profile.html", gin.H{
		"Title":   user.Username,
		"Profile": profile,
	}, profile)
}

func (pc *ProfileController) buildProfile(c *gin.Context, user *entities.User) (*entities.UserProfile, error) {
	viewerID := auth.GetUserID(c)

	threads, err := pc.threads.ListByUser(user.ID)
	if err != nil {
		return nil, err
	}
	followers, err := pc.users.CountFollowers(user.ID)
	if err != nil {
		return nil, err
	}
	following, err := pc.users.CountFollowing(user.ID)
	if err != nil {
		return nil, err
	}
	isFollowing, err := pc.users.IsFollowing(viewerID, user.ID)
	if err != nil {
		return nil, err
	}

	return &entities.UserProfile{
		User:           *user,
		Threads:        pc.urls.threads(c.Request.Context(), threads),
		FollowerCount:  followers,
		FollowingCount: following,
		IsFollowing:    isFollowing,
		IsOwnProfile:   viewerID != auth.AnonymousUserID && viewerID == user.ID,
	}, nil
}

// Follow toggles whether the caller follows the user in the path.
func (pc *ProfileController) Follow(c *gin.Context) {
	param := "username"
	if c.Param("user_id") != "" {
		param = "user_id"
	}
	targetID, err := parseIDParam(c, param)
	if err != nil {
		pc.fail(c, err)
		return
	}

	following, err := pc.users.ToggleFollow(auth.GetUserID(c), targetID)
	if err != nil {
		pc.fail(c, err)
		return
	}
	count, err := pc.users.CountFollowers(targetID)
	if err != nil {
		pc.fail(c, err)
		return
	}

	location := "/accounts/profile/"
	if target, err := pc.users.GetByID(targetID); err == nil {
		location = profilePath(target.Username)
	}
	pc.mutated(c, http.StatusOK, location, FollowResponse{Following: following, FollowerCount: count})
}

// Followers lists the users following the target user.
func (pc *ProfileController) Followers(c *gin.Context) {
	pc.listRelation(c, "Followers", pc.users.ListFollowers)
}

// Following lists the users the target user follows.
func (pc *ProfileController) Following(c *gin.Context) {
	pc.listRelation(c, "Following", pc.users.ListFollowing)
}

func (pc *ProfileController) listRelation(c *gin.Context, title string, list func(uint) ([]entities.User, error)) {
	user, err := pc.targetUser(c)
	if err != nil {
		pc.fail(c, err)
		return
	}
	users, err := list(user.ID)
	if err != nil {
		pc.fail(c, err)
		return
	}
	pc.page(c, http.StatusOK, "user_list.html", gin.H{
		"Title": title,
		"User":  user,
		"Users": users,
	}, UserListResponse{User: *user, Users: users, Count: len(users)})
}

// EditPage renders the profile form for the caller.
func (pc *ProfileController) EditPage(c *gin.Context) {
	user, err := pc.users.GetByID(auth.GetUserID(c))
	if err != nil {
		pc.fail(c, err)
		return
	}
	pc.page(c, http.StatusOK, "profile_form.html", gin.H{"Title": "Edit profile", "User": user}, user)
}

// UpdateProfile changes the caller's email, display name and bio.
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var input ProfileInput
	if err := c.ShouldBind(&input); err != nil {
		pc.fail(c, domainerrors.Validation("invalid request body"))
		return
	}
	input.Email = strings.TrimSpace(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := pc.validator.Validate(input); err != nil {
		pc.failForm(c, "profile_form.html", gin.H{"Title": "Edit profile", "User": input}, err)
		return
	}

	user, err := pc.users.UpdateProfile(auth.GetUserID(c), input.Email, input.DisplayName, input.Bio)
	if err != nil {
		pc.fail(c, err)
		return
	}
	pc.mutated(c, http.StatusOK, profilePath(user.Username), user)
}

// PasswordPage renders the password change form.
func (pc *ProfileController) PasswordPage(c *gin.Context) {
	pc.page(c, http.StatusOK, "password_form.html", gin.H{"Title": "Change password"}, gin.H{})
}

// ChangePassword verifies the old password and stores the new one. The
// session token is renewed so the caller stays logged in.
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	var input auth.PasswordChangeInput
	if err := c.ShouldBind(&input); err != nil {
		pc.fail(c, domainerrors.Validation("invalid request body"))
		return
	}
	if err := pc.authService.ChangePassword(auth.GetUserID(c), input); err != nil {
		pc.failForm(c, "password_form.html", gin.H{"Title": "Change password"}, err)
		return
	}

	if pc.sessions != nil && auth.GetAuthType(c) == auth.AuthTypeSession {
		if err := pc.sessions.RefreshSession(c.Request); err != nil {
			logger.Log.WithError(err).Warn("failed to renew session after password change")
		}
	}
	pc.mutated(c, http.StatusOK, "/accounts/profile/", SuccessResponse{Message: "password changed"})
}

// DeleteAccount removes the caller with everything they own and ends the session.
func (pc *ProfileController) DeleteAccount(c *gin.Context) {
	removed, err := pc.authService.DeleteAccount(auth.GetUserID(c))
	if err != nil {
		pc.fail(c, err)
		return
	}
	pc.effects.removed(c.Request.Context(), removed)

	if pc.sessions != nil && auth.GetAuthType(c) == auth.AuthTypeSession {
		if err := pc.sessions.DestroySession(c.Request); err != nil {
			logger.Log.WithError(err).Warn("failed to destroy session after account deletion")
		}
	}
	pc.mutated(c, http.StatusOK, auth.HomePath, SuccessResponse{Message: "account deleted"})
}
