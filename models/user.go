package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a community member on the leaderboard. There is no
// authentication in this service; users are referenced by id only.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email       string         `gorm:"size:255" json:"email,omitempty"`
	Avatar      string         `gorm:"size:16" json:"avatar"`
	Location    string         `gorm:"size:128" json:"location,omitempty"`
	TotalPoints int            `gorm:"default:0" json:"total_points"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Activities  []Activity     `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Avatar == "" {
		u.Avatar = "🌊"
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
