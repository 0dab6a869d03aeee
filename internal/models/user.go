// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered account. Followers, following and owned posts are
// derived from the follows and posts tables rather than stored here.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"size:254;uniqueIndex;not null" json:"email,omitempty"`
	Password   string    `gorm:"type:text;not null" json:"-"`
	ProfilePic string    `gorm:"size:1024;not null" json:"profile_pic"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Public returns a copy safe to show to other users.
func (u User) Public() User {
	u.Email = ""
	u.Password = ""
	return u
}
