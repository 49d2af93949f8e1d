package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coralcollective/coral/models"
	"github.com/coralcollective/coral/utils"
)

// ActivityController handles custom activity logging and the activity feed.
type ActivityController struct {
	db *gorm.DB
	tc *TaskController
}

func NewActivityController(db *gorm.DB, tc *TaskController) *ActivityController {
	return &ActivityController{db: db, tc: tc}
}

type logActivityRequest struct {
	UserID       uint    `json:"user_id" binding:"required"`
	Description  string  `json:"description" binding:"required,max=280"`
	ActivityType string  `json:"activity_type" binding:"omitempty,max=64"`
	Points       int     `json:"points" binding:"gte=0,lte=500"`
	CO2SavedKg   float64 `json:"co2_saved_kg" binding:"gte=0"`
}

// LogActivity records a free-form sustainability action outside the task
// catalog. Descriptions are sanitized to plain text before storage.
func (a *ActivityController) LogActivity(ctx *gin.Context) {
	var req logActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "user_id and description are required")
		return
	}

	desc := strings.TrimSpace(utils.Sanitize(req.Description))
	if desc == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "description must not be empty")
		return
	}

	var activity models.Activity
	err := a.db.Transaction(func(tx *gorm.DB) error {
		stats, err := a.tc.rollBoundaryTx(tx, req.UserID)
		if err != nil {
			return err
		}

		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errUserNotFound
			}
			return err
		}

		activityType := strings.TrimSpace(utils.Sanitize(req.ActivityType))
		if activityType == "" {
			activityType = "custom_activity"
		}

		activity = models.Activity{
			Reference:    uuid.NewString(),
			UserID:       req.UserID,
			ActivityType: activityType,
			PointsEarned: req.Points,
			CO2SavedKg:   req.CO2SavedKg,
			Multiplier:   1,
			Description:  desc,
		}
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}

		user.TotalPoints += req.Points
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		stats.CO2SavedKg += req.CO2SavedKg
		return tx.Save(stats).Error
	})
	if err != nil {
		respondCreditError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("leaderboard:")
	utils.Created(ctx, activity)
}

// ListActivities returns the recent activity feed, optionally filtered by
// user, newest first.
func (a *ActivityController) ListActivities(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"), 20, 100)

	q := a.db.Order("created_at DESC").Limit(limit)
	if userID, ok := queryUserID(ctx); ok {
		q = q.Where("user_id = ?", userID)
	}

	var activities []models.Activity
	if err := q.Find(&activities).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load activities")
		return
	}
	utils.Success(ctx, gin.H{"activities": activities})
}
