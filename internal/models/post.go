package models

import (
	"strings"
	"time"
)

// Post is a media post owned by a single user.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Caption      string    `gorm:"type:text;not null" json:"caption"`
	MediaURL     string    `gorm:"size:1024;not null" json:"media_url"`
	MediaWebPURL string    `gorm:"column:media_webp_url;size:1024;not null" json:"media_webp_url,omitempty"`
	MediaType    string    `gorm:"size:64;not null" json:"media_type"`
	MediaKey     string    `gorm:"size:512;not null" json:"-"`
	MediaWebPKey string    `gorm:"column:media_webp_key;size:512;not null" json:"-"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
	Comments     []Comment `gorm:"foreignKey:PostID" json:"comments"`
	// Likes holds liker IDs, most recent first. Filled from the likes table.
	Likes     []uint    `gorm:"-" json:"likes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsVideo reports whether the post carries a video rather than an image.
func (p *Post) IsVideo() bool {
	return strings.HasPrefix(p.MediaType, "video/")
}

// LikedBy reports whether userID is in the liker list.
func (p *Post) LikedBy(userID uint) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
