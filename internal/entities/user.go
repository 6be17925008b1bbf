package entities

import "time"

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email            string     `gorm:"index;size:255" json:"email,omitempty"`
	DisplayName      string     `gorm:"size:100" json:"display_name,omitempty"`
	Bio              string     `gorm:"type:text" json:"bio,omitempty"`
	PasswordHash     string     `gorm:"size:255" json:"-"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Follow is a directed edge: FollowerID follows FollowingID.
// The composite primary key keeps the relation a set.
type Follow struct {
	FollowerID  uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowingID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "user_follows"
}

// UserProfile is the read model behind the profile page.
type UserProfile struct {
	User           User     `json:"user"`
	Threads        []Thread `json:"threads"`
	FollowerCount  int64    `json:"follower_count"`
	FollowingCount int64    `json:"following_count"`
	IsFollowing    bool     `json:"is_following"`
	IsOwnProfile   bool     `json:"is_own_profile"`
}
