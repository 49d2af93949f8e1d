package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coralcollective/coral/config"
	"github.com/coralcollective/coral/ledger"
	"github.com/coralcollective/coral/models"
	"github.com/coralcollective/coral/utils"
)

// UserController handles profiles, the leaderboard and progress reads.
type UserController struct {
	db *gorm.DB
	tc *TaskController
}

func NewUserController(db *gorm.DB, tc *TaskController) *UserController {
	return &UserController{db: db, tc: tc}
}

type createUserRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Email    string `json:"email" binding:"omitempty,email"`
	Avatar   string `json:"avatar"`
	Location string `json:"location"`
}

// CreateUser registers a new profile. Usernames are unique.
func (u *UserController) CreateUser(ctx *gin.Context) {
	var req createUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "username is required (2-32 characters)")
		return
	}

	user := models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Avatar:   req.Avatar,
		Location: utils.Sanitize(req.Location),
	}

	var existing models.User
	err := u.db.Where("username = ?", user.Username).First(&existing).Error
	if err == nil {
		utils.Error(ctx, http.StatusConflict, 40930, "username is already taken")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to check username")
		return
	}

	if err := u.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create user")
		return
	}

	utils.InvalidateByPrefix("leaderboard:")
	utils.Created(ctx, user)
}

type leaderboardEntry struct {
	Rank        int    `json:"rank"`
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Avatar      string `json:"avatar"`
	Location    string `json:"location,omitempty"`
	TotalPoints int    `json:"total_points"`
}

// Leaderboard lists users ranked by total points. Ties share points order by
// earliest signup. Results are cached briefly in Redis.
func (u *UserController) Leaderboard(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"), 50, 200)
	cacheKey := "leaderboard:top:" + strconv.Itoa(limit)

	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		var cached []leaderboardEntry
		if json.Unmarshal(b, &cached) == nil {
			utils.Success(ctx, gin.H{"leaderboard": cached})
			return
		}
	}

	var users []models.User
	if err := u.db.Order("total_points DESC, created_at ASC").Limit(limit).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load leaderboard")
		return
	}

	entries := make([]leaderboardEntry, 0, len(users))
	for i, usr := range users {
		entries = append(entries, leaderboardEntry{
			Rank:        i + 1,
			ID:          usr.ID,
			Username:    usr.Username,
			Avatar:      usr.Avatar,
			Location:    usr.Location,
			TotalPoints: usr.TotalPoints,
		})
	}

	ttl := time.Duration(config.Get().LeaderboardCacheTTLSec) * time.Second
	utils.CacheSetJSON(cacheKey, entries, ttl)
	utils.Success(ctx, gin.H{"leaderboard": entries})
}

// GetUser returns a single profile.
func (u *UserController) GetUser(ctx *gin.Context) {
	id, ok := paramUserID(ctx)
	if !ok {
		return
	}
	var user models.User
	if err := u.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load user")
		return
	}
	utils.Success(ctx, user)
}

// Progress returns the user's daily snapshot: CO2 saved today, streak, goal
// percentage and completed-task count. The day boundary rolls on read so a
// stale streak is never served.
func (u *UserController) Progress(ctx *gin.Context) {
	id, ok := paramUserID(ctx)
	if !ok {
		return
	}

	var user models.User
	if err := u.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load user")
		return
	}

	stats, err := u.tc.rollBoundary(id)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to load daily stats")
		return
	}

	utils.Success(ctx, gin.H{
		"user_id":          user.ID,
		"total_points":     user.TotalPoints,
		"co2_saved_kg":     stats.CO2SavedKg,
		"daily_goal_kg":    stats.DailyGoalKg,
		"goal_progress":    ledger.GoalProgress(stats),
		"day_streak":       stats.DayStreak,
		"completed_tasks":  stats.CompletedTasks,
		"last_active_date": stats.LastActiveDate.Format("2006-01-02"),
	})
}

func paramUserID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid user id")
		return 0, false
	}
	return uint(id), true
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
