package main

import (
	"time"

	"github.com/coralcollective/coral/catalog"
	"github.com/coralcollective/coral/config"
	"github.com/coralcollective/coral/grid"
	"github.com/coralcollective/coral/models"
	"github.com/coralcollective/coral/routes"
	"github.com/coralcollective/coral/utils"
	"github.com/coralcollective/coral/verify"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Activity{}, &models.TaskState{}, &models.DailyStat{}, &models.RequestStat{})

	cat, err := catalog.Load(cfg.TasksFile)
	if err != nil {
		utils.Sugar.Fatalf("failed to load task catalog from %s: %v", cfg.TasksFile, err)
	}
	utils.Sugar.Infof("loaded %d tasks from %s", cat.Len(), cfg.TasksFile)

	det := verify.NewDetector(cfg.DetectorBaseURL, time.Duration(cfg.DetectorTimeoutSec)*time.Second)
	oracle := grid.NewOracle(cfg.OpenNEMBaseURL, cfg.OpenNEMAPIKey, time.Duration(cfg.OpenNEMTimeoutSec)*time.Second, utils.Sugar)

	r := routes.SetupRouter(db, cat, det, oracle)

	// Roll stale day boundaries for users who never come back the same day
	utils.StartBoundarySweeper(db, time.Hour)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
