package models

import "time"

// Activity is one credited (or reverted) sustainable action. Point deltas are
// signed: an uncompleted task writes a negating record rather than deleting
// the original one.
type Activity struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Reference    string    `gorm:"size:36;index" json:"reference"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	TaskID       int       `gorm:"index" json:"task_id,omitempty"`
	ActivityType string    `gorm:"size:64;not null" json:"activity_type"`
	PointsEarned int       `json:"points_earned"`
	CO2SavedKg   float64   `json:"co2_saved_kg"`
	Multiplier   float64   `gorm:"default:1" json:"multiplier"`
	Description  string    `gorm:"size:255" json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
