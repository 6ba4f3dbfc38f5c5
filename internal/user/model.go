package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PassHash       string    `gorm:"size:255;not null" json:"-"`
	Name           string    `gorm:"size:120" json:"name"`
	ProfilePicture string    `gorm:"size:512" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type RegisterReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResp struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	PostCount      int64  `json:"post_count"`
}
