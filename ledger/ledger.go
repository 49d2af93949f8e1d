// Package ledger owns the arithmetic on a user's running daily stats. All
// mutation of DailyStat goes through here; controllers persist the result.
package ledger

import (
	"time"

	"github.com/coralcollective/coral/models"
)

// Apply adds a scoring decision's deltas to the running totals. CO2 saved and
// the completed count are floored at zero: negative excursions from rapid
// toggling are suppressed, not carried as debt.
func Apply(stats *models.DailyStat, co2DeltaKg float64, completedDelta int) {
	stats.CO2SavedKg += co2DeltaKg
	if stats.CO2SavedKg < 0 {
		stats.CO2SavedKg = 0
	}
	stats.CompletedTasks += completedDelta
	if stats.CompletedTasks < 0 {
		stats.CompletedTasks = 0
	}
}

// CheckDailyBoundary rolls the stats over to a new calendar day. It must run
// before any scoring and is idempotent: once the stats are stamped with
// today's date, further calls are no-ops. Returns true when a roll happened,
// in which case the caller also resets non-unlimited task completion flags.
func CheckDailyBoundary(stats *models.DailyStat, now time.Time) bool {
	today := DateOf(now)
	last := DateOf(stats.LastActiveDate)

	if last.Equal(today) {
		return false
	}

	stats.CO2SavedKg = 0
	stats.CompletedTasks = 0

	if !stats.LastActiveDate.IsZero() && last.Equal(today.AddDate(0, 0, -1)) {
		// consecutive day
		stats.DayStreak++
	} else {
		stats.DayStreak = 1
	}

	stats.LastActiveDate = today
	return true
}

// GoalProgress reports progress toward the daily goal as a percentage capped
// at 100.
func GoalProgress(stats *models.DailyStat) int {
	if stats.DailyGoalKg <= 0 {
		return 0
	}
	p := int(stats.CO2SavedKg / stats.DailyGoalKg * 100)
	if p > 100 {
		p = 100
	}
	return p
}

// DateOf truncates a time to its local calendar date.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
