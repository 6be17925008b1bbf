package entities

import "time"

// EnrichmentStatus tracks the background author/narration enrichment of a book.
type EnrichmentStatus string

const (
	EnrichmentStatusNone     EnrichmentStatus = "none"     // Enrichment disabled or never requested
	EnrichmentStatusPending  EnrichmentStatus = "pending"  // Enqueued, not finished
	EnrichmentStatusComplete EnrichmentStatus = "complete" // Every configured step succeeded
	EnrichmentStatusPartial  EnrichmentStatus = "partial"  // Author info saved, narration failed
	EnrichmentStatusFailed   EnrichmentStatus = "failed"   // Author info generation failed
)

// Retryable reports whether the retry sweep should pick the book up again.
func (s EnrichmentStatus) Retryable() bool {
	switch s {
	case EnrichmentStatusPending, EnrichmentStatusPartial, EnrichmentStatusFailed:
		return true
	}
	return false
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

type Book struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	Title              string           `gorm:"index;size:100;not null" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	CustomerReviewRank int              `json:"customer_review_rank"`
	ISBN               string           `gorm:"index;size:20" json:"isbn,omitempty"`
	Author             string           `gorm:"index;size:50" json:"author"`
	AuthorProfileImage string           `gorm:"size:512" json:"author_profile_img,omitempty"`
	AuthorInfo         string           `gorm:"type:text" json:"author_info"`
	AuthorWorks        string           `gorm:"size:255" json:"author_works"`
	CoverImage         string           `gorm:"size:512" json:"cover_image,omitempty"`
	CoverBlurHash      string           `gorm:"size:64" json:"cover_blurhash,omitempty"`
	AudioFile          string           `gorm:"size:512" json:"audio_file,omitempty"`
	EnrichmentStatus   EnrichmentStatus `gorm:"size:20;default:'none';index" json:"enrichment_status"`
	EnrichmentError    string           `gorm:"type:text" json:"enrichment_error,omitempty"`
	EnrichmentAttempts int              `gorm:"default:0" json:"-"`
	EnrichedAt         *time.Time       `json:"enriched_at,omitempty"`
	UserID             *uint            `gorm:"index" json:"user_id"`
	User               *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID         *uint            `gorm:"index" json:"category_id,omitempty"`
	Category           *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Threads            []Thread         `gorm:"foreignKey:BookID" json:"threads,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// OwnedBy reports whether userID owns the book. Books without an owner belong to nobody.
func (b *Book) OwnedBy(userID uint) bool {
	return b.UserID != nil && userID != 0 && *b.UserID == userID
}
