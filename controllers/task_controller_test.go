package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coralcollective/coral/catalog"
	"github.com/coralcollective/coral/models"
	"github.com/coralcollective/coral/scoring"
	"github.com/coralcollective/coral/utils"
)

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := `[
		{"title": "Bike to Work", "points": 120, "carbonSavingKg": 1.2, "verification": "photo", "verificationTarget": "bicycle"},
		{"title": "Dishwasher on Clean Energy", "points": 80, "carbonSavingKg": 0.6, "verification": "grid"},
		{"title": "Reusable Water Bottle", "points": 40, "carbonSavingKg": 0.8},
		{"title": "Recycle an Item", "points": 15, "carbonSavingKg": 0.05, "unlimited": true, "displayUnit": "g"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	c, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return c
}

func TestListTasksWithoutUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tc := NewTaskController(nil, testCatalog(t), nil, nil)
	r := gin.New()
	r.GET("/api/v1/tasks", tc.ListTasks)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Data struct {
			Tasks []struct {
				ID        int    `json:"id"`
				Title     string `json:"title"`
				Completed bool   `json:"completed"`
			} `json:"tasks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data.Tasks) != 4 {
		t.Fatalf("got %d tasks, want 4", len(body.Data.Tasks))
	}
	for _, task := range body.Data.Tasks {
		if task.Completed {
			t.Fatalf("task %d completed without a user", task.ID)
		}
	}
}

func TestCompleteRejectsPhotoTasks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tc := NewTaskController(nil, testCatalog(t), nil, nil)
	r := gin.New()
	r.POST("/api/v1/tasks/:id/complete", tc.CompleteTask)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/1/complete", jsonBody(`{"user_id": 1}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tc := NewTaskController(nil, testCatalog(t), nil, nil)
	r := gin.New()
	r.POST("/api/v1/tasks/:id/complete", tc.CompleteTask)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/42/complete", jsonBody(`{"user_id": 1}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestConfirmRequiresOfferToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tc := NewTaskController(nil, testCatalog(t), nil, nil)
	r := gin.New()
	r.POST("/api/v1/tasks/:id/confirm", tc.ConfirmGridTask)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/2/confirm", jsonBody(`{"user_id": 1}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConfirmRejectsNonGridTask(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tc := NewTaskController(nil, testCatalog(t), nil, nil)
	r := gin.New()
	r.POST("/api/v1/tasks/:id/confirm", tc.ConfirmGridTask)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/3/confirm", jsonBody(`{"user_id": 1, "offer_token": "x"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func controllerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Activity{}, &models.TaskState{}, &models.DailyStat{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUnlimitedTaskClaimsAreAdditive(t *testing.T) {
	db := controllerTestDB(t)
	user := models.User{Username: "finn"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	cat := testCatalog(t)
	tc := NewTaskController(db, cat, nil, nil)
	task := cat.Get(4)
	if task == nil || !task.Unlimited {
		t.Fatalf("fixture task 4 should be unlimited, got %+v", task)
	}

	for i := 0; i < 2; i++ {
		if err := tc.credit(user.ID, task, scoring.Complete(task, 1), "task_completed"); err != nil {
			t.Fatalf("claim %d: %v", i+1, err)
		}
	}

	var activities []models.Activity
	if err := db.Where("user_id = ?", user.ID).Find(&activities).Error; err != nil {
		t.Fatalf("load activities: %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("got %d activity rows, want 2", len(activities))
	}
	for _, a := range activities {
		if a.PointsEarned != task.Points || a.CO2SavedKg != task.CarbonSavingKg {
			t.Fatalf("claim not independent and positive: %+v", a)
		}
	}

	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.TotalPoints != 2*task.Points {
		t.Fatalf("total points = %d, want %d", reloaded.TotalPoints, 2*task.Points)
	}

	var stats models.DailyStat
	if err := db.Where("user_id = ?", user.ID).First(&stats).Error; err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.CompletedTasks != 2 {
		t.Fatalf("completed tasks = %d, want 2", stats.CompletedTasks)
	}

	// No completion flag exists for unlimited tasks, so nothing to toggle.
	var stateCount int64
	if err := db.Model(&models.TaskState{}).Where("user_id = ?", user.ID).Count(&stateCount).Error; err != nil {
		t.Fatalf("count states: %v", err)
	}
	if stateCount != 0 {
		t.Fatalf("got %d task state rows for an unlimited task, want 0", stateCount)
	}
}

func TestSecondClaimOfLimitedTaskRejected(t *testing.T) {
	db := controllerTestDB(t)
	user := models.User{Username: "marnie"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	cat := testCatalog(t)
	tc := NewTaskController(db, cat, nil, nil)
	task := cat.Get(3)

	if err := tc.credit(user.ID, task, scoring.Complete(task, 1), "task_completed"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	err := tc.credit(user.ID, task, scoring.Complete(task, 1), "task_completed")
	if !errors.Is(err, errAlreadyCompleted) {
		t.Fatalf("second claim err = %v, want errAlreadyCompleted", err)
	}
}

func TestConfirmFailureKeepsOfferUsable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := controllerTestDB(t)
	tc := NewTaskController(db, testCatalog(t), nil, nil)
	r := gin.New()
	r.POST("/api/v1/tasks/:id/confirm", tc.ConfirmGridTask)

	// User 42 does not exist, so the credit transaction fails after the
	// token is consumed.
	token := utils.SaveGridOffer(utils.GridOffer{UserID: 42, TaskID: 2, Multiplier: 0.5, Intensity: 410})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/2/confirm",
		jsonBody(`{"user_id": 42, "offer_token": "`+token+`"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if _, ok := utils.ConsumeGridOffer(token); !ok {
		t.Fatal("offer token burned by a failed credit")
	}
}
