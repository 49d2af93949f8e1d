package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coralcollective/coral/catalog"
	"github.com/coralcollective/coral/config"
	"github.com/coralcollective/coral/grid"
	"github.com/coralcollective/coral/ledger"
	"github.com/coralcollective/coral/models"
	"github.com/coralcollective/coral/scoring"
	"github.com/coralcollective/coral/utils"
	"github.com/coralcollective/coral/verify"
)

// TaskController handles task listing and the claim / undo / verification flows.
type TaskController struct {
	db       *gorm.DB
	catalog  *catalog.Catalog
	detector *verify.Detector
	oracle   *grid.Oracle
}

// NewTaskController creates a new controller instance.
func NewTaskController(db *gorm.DB, cat *catalog.Catalog, det *verify.Detector, oracle *grid.Oracle) *TaskController {
	return &TaskController{db: db, catalog: cat, detector: det, oracle: oracle}
}

type taskView struct {
	catalog.Task
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListTasks returns the catalog, merged with the requesting user's completion
// state when userId is supplied.
func (t *TaskController) ListTasks(ctx *gin.Context) {
	views := make([]taskView, 0, t.catalog.Len())
	for _, task := range t.catalog.All() {
		views = append(views, taskView{Task: task})
	}

	userID, ok := queryUserID(ctx)
	if ok {
		if _, err := t.rollBoundary(userID); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load daily stats")
			return
		}
		var states []models.TaskState
		if err := t.db.Where("user_id = ?", userID).Find(&states).Error; err == nil {
			byTask := make(map[int]*models.TaskState, len(states))
			for i := range states {
				byTask[states[i].TaskID] = &states[i]
			}
			for i := range views {
				if st, ok := byTask[views[i].ID]; ok && st.Completed {
					views[i].Completed = true
					views[i].CompletedAt = st.CompletedAt
				}
			}
		}
	}

	utils.Success(ctx, gin.H{"tasks": views})
}

type claimRequest struct {
	UserID     uint   `json:"user_id" binding:"required"`
	OfferToken string `json:"offer_token"`
}

// CompleteTask claims a task with verification mode none or grid. Photo tasks
// must go through VerifyPhoto.
func (t *TaskController) CompleteTask(ctx *gin.Context) {
	task, req, ok := t.bindClaim(ctx)
	if !ok {
		return
	}

	switch task.Verification {
	case catalog.VerifyPhoto:
		utils.Error(ctx, http.StatusBadRequest, 40021, "this task requires photo verification")
	case catalog.VerifyGrid:
		t.completeGridTask(ctx, task, req.UserID)
	default:
		t.completePlainTask(ctx, task, req.UserID)
	}
}

func (t *TaskController) completePlainTask(ctx *gin.Context, task *catalog.Task, userID uint) {
	decision := scoring.Complete(task, 1)
	if err := t.credit(userID, task, decision, "task_completed"); err != nil {
		respondCreditError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"message":       completionMessage(task),
		"points_earned": decision.PointDelta,
		"co2_saved_kg":  decision.CO2DeltaKg,
	})
}

func (t *TaskController) completeGridTask(ctx *gin.Context, task *catalog.Task, userID uint) {
	reading := t.oracle.Current(ctx.Request.Context())
	tier := grid.TierFor(reading.Intensity)

	switch tier {
	case grid.TierLow:
		decision := scoring.Complete(task, 1)
		if err := t.credit(userID, task, decision, "grid_task_completed"); err != nil {
			respondCreditError(ctx, err)
			return
		}
		utils.Success(ctx, gin.H{
			"message":       tier.Advice(),
			"reading":       reading,
			"tier":          tier,
			"points_earned": decision.PointDelta,
			"co2_saved_kg":  decision.CO2DeltaKg,
		})
	case grid.TierMedium:
		// No completion yet: the user must accept half credit explicitly.
		token := utils.SaveGridOffer(utils.GridOffer{
			UserID:     userID,
			TaskID:     task.ID,
			Multiplier: tier.Multiplier(),
			Intensity:  reading.Intensity,
		})
		utils.Success(ctx, gin.H{
			"confirmation_required": true,
			"message":               tier.Advice(),
			"reading":               reading,
			"tier":                  tier,
			"offer_token":           token,
			"points_on_confirm":     scoring.Complete(task, tier.Multiplier()).PointDelta,
		})
	default:
		utils.Error(ctx, http.StatusConflict, 40910, tier.Advice())
	}
}

// ConfirmGridTask applies a previously offered half-credit grid claim. Tokens
// are single-use; the multiplier applied is the one that was offered.
func (t *TaskController) ConfirmGridTask(ctx *gin.Context) {
	task, req, ok := t.bindClaim(ctx)
	if !ok {
		return
	}
	if task.Verification != catalog.VerifyGrid {
		utils.Error(ctx, http.StatusBadRequest, 40022, "task is not grid-verified")
		return
	}
	if req.OfferToken == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "offer_token is required")
		return
	}

	offer, ok := utils.ConsumeGridOffer(req.OfferToken)
	if !ok || offer.UserID != req.UserID || offer.TaskID != task.ID {
		utils.Error(ctx, http.StatusBadRequest, 40024, "offer expired or does not match this claim")
		return
	}

	decision := scoring.Complete(task, offer.Multiplier)
	if err := t.credit(req.UserID, task, decision, "grid_task_completed"); err != nil {
		// The claim did not land, so give the token back.
		utils.RestoreGridOffer(req.OfferToken, offer)
		respondCreditError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"message":       fmt.Sprintf("Completed for partial credit at %d gCO2/kWh.", offer.Intensity),
		"points_earned": decision.PointDelta,
		"co2_saved_kg":  decision.CO2DeltaKg,
	})
}

// UncompleteTask reverts a completed task, negating exactly the credited
// deltas. Unlimited tasks have no completion flag to revert.
func (t *TaskController) UncompleteTask(ctx *gin.Context) {
	task, req, ok := t.bindClaim(ctx)
	if !ok {
		return
	}
	if task.Unlimited {
		utils.Error(ctx, http.StatusBadRequest, 40025, "unlimited tasks cannot be uncompleted")
		return
	}

	err := t.db.Transaction(func(tx *gorm.DB) error {
		stats, err := t.rollBoundaryTx(tx, req.UserID)
		if err != nil {
			return err
		}

		var state models.TaskState
		if err := tx.Where("user_id = ? AND task_id = ?", req.UserID, task.ID).First(&state).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotCompleted
			}
			return err
		}
		if !state.Completed {
			return errNotCompleted
		}

		decision := scoring.UncompleteAt(task, state.CreditedMultiplier)
		return t.applyTx(tx, stats, req.UserID, task, decision, "task_uncompleted", false)
	})
	if err != nil {
		respondCreditError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("leaderboard:")
	utils.Success(ctx, gin.H{"message": "Task unchecked. Keep going!"})
}

type verifyRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Image  string `json:"image" binding:"required"`
}

// VerifyPhoto runs photographic evidence through the classifier and credits
// the task on acceptance. No credit is ever granted when the classifier is
// unavailable.
func (t *TaskController) VerifyPhoto(ctx *gin.Context) {
	task := t.lookupTask(ctx)
	if task == nil {
		return
	}
	if task.Verification != catalog.VerifyPhoto {
		utils.Error(ctx, http.StatusBadRequest, 40026, "task does not use photo verification")
		return
	}

	var req verifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "user_id and image are required")
		return
	}

	result, err := t.detector.Verify(ctx.Request.Context(), req.Image, task)
	if err != nil {
		if errors.Is(err, verify.ErrClassifierUnavailable) {
			utils.Error(ctx, http.StatusServiceUnavailable, 50310, "verification service unavailable, please retry")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "verification failed")
		return
	}

	if !result.Accepted {
		utils.Respond(ctx, http.StatusUnprocessableEntity, 42210, "target not detected in the photo", gin.H{
			"accepted": false,
			"detected": result.Detected,
		})
		return
	}

	decision := scoring.Complete(task, 1)
	if err := t.credit(req.UserID, task, decision, "photo_task_completed"); err != nil {
		respondCreditError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"accepted":      true,
		"matched_label": result.MatchedLabel,
		"confidence":    result.Confidence,
		"message":       completionMessage(task),
		"points_earned": decision.PointDelta,
		"co2_saved_kg":  decision.CO2DeltaKg,
	})
}

var (
	errAlreadyCompleted = errors.New("task already completed today")
	errNotCompleted     = errors.New("task is not completed")
	errUserNotFound     = errors.New("user not found")
)

// credit applies an accepted decision atomically: activity record, user point
// total, task state and daily stats all move in one transaction. The daily
// boundary runs first so yesterday's flags never absorb today's claim.
func (t *TaskController) credit(userID uint, task *catalog.Task, decision scoring.Decision, activityType string) error {
	err := t.db.Transaction(func(tx *gorm.DB) error {
		stats, err := t.rollBoundaryTx(tx, userID)
		if err != nil {
			return err
		}
		return t.applyTx(tx, stats, userID, task, decision, activityType, true)
	})
	if err != nil {
		return err
	}
	utils.InvalidateByPrefix("leaderboard:")
	return nil
}

func (t *TaskController) applyTx(tx *gorm.DB, stats *models.DailyStat, userID uint, task *catalog.Task, decision scoring.Decision, activityType string, completing bool) error {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errUserNotFound
		}
		return err
	}

	now := time.Now()
	completedDelta := 1
	if !completing {
		completedDelta = -1
	}

	if !task.Unlimited {
		var state models.TaskState
		err := tx.Where("user_id = ? AND task_id = ?", userID, task.ID).First(&state).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			state = models.TaskState{UserID: userID, TaskID: task.ID}
		case err != nil:
			return err
		}
		if completing && state.Completed {
			return errAlreadyCompleted
		}
		state.Completed = completing
		state.CreditedMultiplier = decision.Multiplier
		if completing {
			state.CompletedAt = &now
		} else {
			state.CompletedAt = nil
		}
		if err := tx.Save(&state).Error; err != nil {
			return err
		}
	}

	activity := models.Activity{
		Reference:    uuid.NewString(),
		UserID:       userID,
		TaskID:       task.ID,
		ActivityType: activityType,
		PointsEarned: decision.PointDelta,
		CO2SavedKg:   decision.CO2DeltaKg,
		Multiplier:   decision.Multiplier,
		Description:  task.Title,
	}
	if err := tx.Create(&activity).Error; err != nil {
		return err
	}

	user.TotalPoints += decision.PointDelta
	if user.TotalPoints < 0 {
		user.TotalPoints = 0
	}
	if err := tx.Save(&user).Error; err != nil {
		return err
	}

	ledger.Apply(stats, decision.CO2DeltaKg, completedDelta)
	return tx.Save(stats).Error
}

// rollBoundary loads (or creates) the user's daily stats and rolls the day
// boundary when needed. Safe to call repeatedly; only the first call on a new
// day mutates anything.
func (t *TaskController) rollBoundary(userID uint) (*models.DailyStat, error) {
	var stats *models.DailyStat
	err := t.db.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = t.rollBoundaryTx(tx, userID)
		return err
	})
	return stats, err
}

func (t *TaskController) rollBoundaryTx(tx *gorm.DB, userID uint) (*models.DailyStat, error) {
	var stats models.DailyStat
	err := tx.Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.DailyStat{
			UserID:         userID,
			DayStreak:      1,
			DailyGoalKg:    config.Get().DailyGoalKg,
			LastActiveDate: ledger.DateOf(time.Now()),
		}
		if err := tx.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}

	if ledger.CheckDailyBoundary(&stats, time.Now()) {
		if err := tx.Save(&stats).Error; err != nil {
			return nil, err
		}
		// New day: drop yesterday's completion flags, unlimited tasks have none.
		if err := tx.Model(&models.TaskState{}).
			Where("user_id = ? AND completed = ?", userID, true).
			Updates(map[string]interface{}{"completed": false, "completed_at": nil}).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

func (t *TaskController) bindClaim(ctx *gin.Context) (*catalog.Task, claimRequest, bool) {
	task := t.lookupTask(ctx)
	if task == nil {
		return nil, claimRequest{}, false
	}
	var req claimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "user_id is required")
		return nil, claimRequest{}, false
	}
	return task, req, true
}

func (t *TaskController) lookupTask(ctx *gin.Context) *catalog.Task {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40027, "invalid task id")
		return nil
	}
	task := t.catalog.Get(id)
	if task == nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "task not found")
		return nil
	}
	return task
}

func respondCreditError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, errAlreadyCompleted):
		utils.Error(ctx, http.StatusBadRequest, 40028, err.Error())
	case errors.Is(err, errNotCompleted):
		utils.Error(ctx, http.StatusBadRequest, 40029, err.Error())
	case errors.Is(err, errUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, err.Error())
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to record claim")
	}
}

func completionMessage(task *catalog.Task) string {
	if task.DisplayUnit == "g" {
		return fmt.Sprintf("Great job! You saved %.1fg CO2!", task.CarbonSavingKg*1000)
	}
	return fmt.Sprintf("Great job! You saved %.1fkg CO2!", task.CarbonSavingKg)
}

func queryUserID(ctx *gin.Context) (uint, bool) {
	raw := ctx.Query("userId")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
