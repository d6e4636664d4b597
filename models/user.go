// models/user.go
package models

import (
	"encoding/json"
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username"`
	Account   string    `json:"account" gorm:"uniqueIndex;not null;size:64"`
	Password  string    `json:"-" gorm:"not null"`
	AvatarURL string    `json:"avatar_url"`
	Gender    int       `json:"gender"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin" gorm:"default:false"`
	Tags      string    `json:"tags" gorm:"type:text"` // JSON array of tag strings
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Safe returns a copy with credentials stripped, for API responses.
func (u User) Safe() User {
	u.Password = ""
	return u
}

// TagList decodes the JSON tags column. A missing or malformed column
// decodes to an empty list.
func (u User) TagList() []string {
	if u.Tags == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(u.Tags), &tags); err != nil {
		return nil
	}
	return tags
}
