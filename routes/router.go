package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coralcollective/coral/catalog"
	"github.com/coralcollective/coral/config"
	"github.com/coralcollective/coral/controllers"
	"github.com/coralcollective/coral/grid"
	"github.com/coralcollective/coral/middleware"
	"github.com/coralcollective/coral/utils"
	"github.com/coralcollective/coral/verify"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, cat *catalog.Catalog, det *verify.Detector, oracle *grid.Oracle) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))
	// Record request stats after each request
	r.Use(middleware.RequestStatRecorder(db))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	taskController := controllers.NewTaskController(db, cat, det, oracle)
	userController := controllers.NewUserController(db, taskController)
	activityController := controllers.NewActivityController(db, taskController)
	gridController := controllers.NewGridController(oracle)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	// Reads
	api.GET("/tasks", taskController.ListTasks)
	api.GET("/carbon-intensity", gridController.CarbonIntensity)
	api.GET("/carbon-data", gridController.CarbonData)
	api.GET("/users", userController.Leaderboard)
	api.GET("/users/:id", userController.GetUser)
	api.GET("/users/:id/progress", userController.Progress)
	api.GET("/activities", activityController.ListActivities)
	api.GET("/stats", statsController.GetStats)

	// Writes share one rate limit bucket per client IP
	mutating := api.Group("")
	mutating.Use(middleware.RateLimitMiddleware())
	mutating.POST("/users", userController.CreateUser)
	mutating.POST("/tasks/:id/complete", taskController.CompleteTask)
	mutating.POST("/tasks/:id/confirm", taskController.ConfirmGridTask)
	mutating.POST("/tasks/:id/uncomplete", taskController.UncompleteTask)
	mutating.POST("/tasks/:id/verify", taskController.VerifyPhoto)
	mutating.POST("/activities", activityController.LogActivity)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
