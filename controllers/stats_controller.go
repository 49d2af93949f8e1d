package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coralcollective/coral/models"
	"github.com/coralcollective/coral/utils"
)

// StatsController provides community-wide aggregates.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the community.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var activityCount int64
	var co2Today float64
	var dailyHits int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.Activity{}).Count(&activityCount).Error; err != nil {
		activityCount = 0
	}

	// Use string date equality to avoid timezone/type mismatches with DATE column
	today := time.Now().In(time.Local).Format("2006-01-02")

	if err := s.db.Model(&models.DailyStat{}).
		Where("last_active_date = ?", today).
		Select("COALESCE(SUM(co2_saved_kg),0)").
		Scan(&co2Today).Error; err != nil {
		co2Today = 0
	}

	if err := s.db.Model(&models.RequestStat{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyHits).Error; err != nil {
		dailyHits = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":         userCount,
		"activity_count":     activityCount,
		"co2_saved_today_kg": co2Today,
		"daily_hit_count":    dailyHits,
	})
}
