package models

import "time"

// DailyStat is the per-user running ledger for the current day. CO2SavedKg is
// clamped at zero; DayStreak counts consecutive active days. LastActiveDate is
// a calendar date (local midnight) used by the daily boundary check.
type DailyStat struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CO2SavedKg     float64   `gorm:"default:0" json:"co2_saved_kg"`
	DayStreak      int       `gorm:"default:1" json:"day_streak"`
	DailyGoalKg    float64   `gorm:"default:2.5" json:"daily_goal_kg"`
	CompletedTasks int       `gorm:"default:0" json:"completed_tasks"`
	LastActiveDate time.Time `gorm:"type:date" json:"last_active_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
