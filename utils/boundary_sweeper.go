package utils

import (
	"time"

	"gorm.io/gorm"

	"github.com/coralcollective/coral/ledger"
	"github.com/coralcollective/coral/models"
)

// StartBoundarySweeper launches a background goroutine that clears stale daily
// totals and completion flags for users who have not been seen since
// yesterday. It deliberately leaves DayStreak and LastActiveDate untouched:
// those record genuine visits, and the request-path boundary check recomputes
// the streak from the real last-visit date. A sweep must never look like user
// activity.
func StartBoundarySweeper(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			sweepBoundaries(db)
		}
	}()
}

// sweepBoundaries zeroes daily progress that predates today. Set-based so a
// large stale population is one statement, and safe to run any number of
// times per day.
func sweepBoundaries(db *gorm.DB) {
	today := ledger.DateOf(time.Now())

	if err := db.Model(&models.DailyStat{}).
		Where("last_active_date < ? AND (co2_saved_kg > 0 OR completed_tasks > 0)", today).
		Updates(map[string]interface{}{"co2_saved_kg": 0, "completed_tasks": 0}).Error; err != nil {
		if Sugar != nil {
			Sugar.Warnf("boundary sweeper stat reset failed: %v", err)
		}
	}

	if err := db.Model(&models.TaskState{}).
		Where("completed = ? AND completed_at < ?", true, today).
		Updates(map[string]interface{}{"completed": false, "completed_at": nil}).Error; err != nil {
		if Sugar != nil {
			Sugar.Warnf("boundary sweeper flag reset failed: %v", err)
		}
	}
}
