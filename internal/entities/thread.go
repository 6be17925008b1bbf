package entities

import "time"

// ReadingDateLayout is the wire and storage format of Thread.ReadingDate.
const ReadingDateLayout = "2006-01-02"

// Thread is a user-authored review of one book.
// BookID and UserID are set on creation and never updated.
type Thread struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BookID        uint      `gorm:"index;not null" json:"book_id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Title         string    `gorm:"size:100;not null" json:"title"`
	Content       string    `gorm:"type:text" json:"content"`
	ReadingDate   string    `gorm:"size:10" json:"reading_date"`
	CoverImage    string    `gorm:"size:512" json:"cover_img,omitempty"`
	CoverBlurHash string    `gorm:"size:64" json:"cover_blurhash,omitempty"`
	Book          *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	User          *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Thread) TableName() string {
	return "threads"
}

func (t *Thread) OwnedBy(userID uint) bool {
	return userID != 0 && t.UserID == userID
}

// ThreadLike records one user liking one thread; the composite key makes likes a set.
type ThreadLike struct {
	ThreadID  uint      `gorm:"primaryKey;autoIncrement:false" json:"thread_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ThreadLike) TableName() string {
	return "thread_likes"
}

// ThreadStats are the computed counters shown on a thread.
type ThreadStats struct {
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	IsLiked      bool  `json:"is_liked"`
}
