package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coralcollective/coral/grid"
)

func gridRouter(upstream string, key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	oracle := grid.NewOracle(upstream, key, 2*time.Second, nil)
	gc := NewGridController(oracle)
	r := gin.New()
	r.GET("/api/v1/carbon-intensity", gc.CarbonIntensity)
	r.GET("/api/v1/carbon-data", gc.CarbonData)
	return r
}

func TestCarbonIntensityEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 20000 MW at 8000 t/h -> 400 gCO2/kWh, medium tier
		fmt.Fprint(w, `{"data":[
			{"metric":"power","data":[{"time":"2026-03-04T11:00:00Z","value":20000}]},
			{"metric":"emissions","data":[{"time":"2026-03-04T11:00:00Z","value":8000}]}
		]}`)
	}))
	defer srv.Close()

	r := gridRouter(srv.URL, "k")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carbon-intensity", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Code int `json:"code"`
		Data struct {
			Reading    grid.Reading `json:"reading"`
			Tier       string       `json:"tier"`
			Multiplier float64      `json:"multiplier"`
			Advice     string       `json:"advice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Reading.Intensity != 400 {
		t.Fatalf("intensity = %d, want 400", body.Data.Reading.Intensity)
	}
	if body.Data.Tier != "medium" || body.Data.Multiplier != 0.5 {
		t.Fatalf("tier = %q mult = %v, want medium/0.5", body.Data.Tier, body.Data.Multiplier)
	}
	if body.Data.Advice == "" {
		t.Fatal("missing advice")
	}
}

func TestCarbonIntensityFallsBackWhenUpstreamIsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := gridRouter(srv.URL, "k")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carbon-intensity", nil))

	// Clients always get a reading; the source flag reveals the fallback.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data struct {
			Reading grid.Reading `json:"reading"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Reading.Source != grid.SourceSimulated {
		t.Fatalf("source = %q, want simulated", body.Data.Reading.Source)
	}
}

func TestCarbonDataProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing upstream auth header")
		}
		fmt.Fprint(w, `{"data":[{"metric":"power","data":[]}]}`)
	}))
	defer srv.Close()

	r := gridRouter(srv.URL, "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carbon-data", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) == 0 {
		t.Fatalf("unexpected proxy body: %s", rec.Body.String())
	}
}

func TestCarbonDataProxyUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := gridRouter(srv.URL, "k")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carbon-data", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Fatal("success = true on upstream failure")
	}
}
