package models

import (
	"time"
	"unicode/utf8"
)

// MaxPostLength is the character limit shared by posts and comments.
const MaxPostLength = 140

// Post is a status, a reply to another post (ParentPostID) or a repost (RepostOfID).
// A user reposts a given post at most once.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"not null;index;uniqueIndex:idx_posts_repost_owner,where:repost_of_id IS NOT NULL" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Desc         string    `gorm:"size:255" json:"desc,omitempty"`
	Img          string    `json:"img,omitempty"`
	ImgHeight    int       `json:"img_height,omitempty"`
	Video        string    `json:"video,omitempty"`
	IsSensitive  bool      `gorm:"not null;default:false" json:"is_sensitive"`
	RepostOfID   *uint     `gorm:"index;uniqueIndex:idx_posts_repost_owner" json:"repost_of_id,omitempty"`
	RepostOf     *Post     `gorm:"foreignKey:RepostOfID;constraint:OnDelete:CASCADE" json:"repost_of,omitempty"`
	ParentPostID *uint     `gorm:"index" json:"parent_post_id,omitempty"`
	ParentPost   *Post     `gorm:"foreignKey:ParentPostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Computed at query time
	LikesCount    int64 `gorm:"->;-:migration" json:"likes_count"`
	RepostsCount  int64 `gorm:"->;-:migration" json:"reposts_count"`
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
}

// ValidatePostText reports whether desc fits the character limit.
func ValidatePostText(desc string) error {
	if utf8.RuneCountInString(desc) > MaxPostLength {
		return NewValidationError("Text must be at most 140 characters")
	}
	return nil
}
