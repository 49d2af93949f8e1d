package models

import "time"

// TaskState records the per-user completion flag for a catalog task. Unlimited
// tasks never get a row here; their claims are additive activity records only.
// Rows are reset (not deleted) at the daily boundary.
type TaskState struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index:idx_task_state_user_task,unique;not null" json:"user_id"`
	TaskID      int        `gorm:"index:idx_task_state_user_task,unique;not null" json:"task_id"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	// Multiplier the completion was credited at; undo negates exactly this.
	CreditedMultiplier float64   `gorm:"default:1" json:"credited_multiplier"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
