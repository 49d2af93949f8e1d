package grid

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSimulateBounds(t *testing.T) {
	// Every hour of every month, weekday and weekend, must stay inside the
	// simulation clamps.
	for month := time.January; month <= time.December; month++ {
		for day := 1; day <= 7; day++ {
			for hour := 0; hour < 24; hour++ {
				now := time.Date(2026, month, day, hour, 30, 0, 0, time.Local)
				r := Simulate(now)
				if r.Intensity < 150 || r.Intensity > 800 {
					t.Fatalf("%v: intensity %d out of [150,800]", now, r.Intensity)
				}
				if r.Renewable < 10 || r.Renewable > 90 {
					t.Fatalf("%v: renewable %d out of [10,90]", now, r.Renewable)
				}
				if r.Source != SourceSimulated {
					t.Fatalf("source = %q, want %q", r.Source, SourceSimulated)
				}
			}
		}
	}
}

func TestSimulateDeterministic(t *testing.T) {
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.Local)
	a := Simulate(now)
	b := Simulate(now)
	if a != b {
		t.Fatalf("same instant produced different readings: %+v vs %+v", a, b)
	}
}

func TestSimulateKnownValues(t *testing.T) {
	cases := []struct {
		name      string
		now       time.Time
		intensity int
		renewable int
	}{
		{
			// Wednesday noon in late autumn, no seasonal adjustment
			name:      "weekday solar window",
			now:       time.Date(2026, time.May, 6, 12, 0, 0, 0, time.Local),
			intensity: 220,
			renewable: 75,
		},
		{
			// Saturday noon
			name:      "weekend solar window",
			now:       time.Date(2026, time.May, 9, 11, 0, 0, 0, time.Local),
			intensity: 180,
			renewable: 75,
		},
		{
			// Wednesday 3 AM
			name:      "weekday overnight",
			now:       time.Date(2026, time.May, 6, 3, 0, 0, 0, time.Local),
			intensity: 380,
			renewable: 45,
		},
		{
			// Wednesday 6 PM
			name:      "weekday evening peak",
			now:       time.Date(2026, time.May, 6, 18, 0, 0, 0, time.Local),
			intensity: 550,
			renewable: 27,
		},
		{
			// January weekday noon: summer shaves 30 off, adds 10 renewable
			name:      "summer solar window",
			now:       time.Date(2026, time.January, 7, 12, 0, 0, 0, time.Local),
			intensity: 190,
			renewable: 85,
		},
		{
			// The summer adjustment runs through March
			name:      "early autumn still counts as summer",
			now:       time.Date(2026, time.March, 4, 12, 0, 0, 0, time.Local),
			intensity: 190,
			renewable: 85,
		},
		{
			// July weekday evening: winter adds 50, drops 5 renewable
			name:      "winter evening peak",
			now:       time.Date(2026, time.July, 8, 18, 0, 0, 0, time.Local),
			intensity: 600,
			renewable: 22,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Simulate(tc.now)
			if r.Intensity != tc.intensity {
				t.Fatalf("intensity = %d, want %d", r.Intensity, tc.intensity)
			}
			if r.Renewable != tc.renewable {
				t.Fatalf("renewable = %d, want %d", r.Renewable, tc.renewable)
			}
		})
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		intensity int
		tier      Tier
		mult      float64
	}{
		{150, TierLow, 1},
		{299, TierLow, 1},
		{300, TierMedium, 0.5},
		{499, TierMedium, 0.5},
		{500, TierHigh, 0},
		{800, TierHigh, 0},
	}
	for _, tc := range cases {
		tier := TierFor(tc.intensity)
		if tier != tc.tier {
			t.Fatalf("TierFor(%d) = %q, want %q", tc.intensity, tier, tc.tier)
		}
		if tier.Multiplier() != tc.mult {
			t.Fatalf("multiplier for %d = %v, want %v", tc.intensity, tier.Multiplier(), tc.mult)
		}
		if tier.Advice() == "" {
			t.Fatalf("tier %q has no advice", tier)
		}
	}
}

func upstreamPayload(powerMW, emissionsT float64) string {
	return fmt.Sprintf(`{
		"data": [
			{"metric": "power", "data": [
				{"time": "2026-03-04T10:00:00Z", "value": 20000},
				{"time": "2026-03-04T11:00:00Z", "value": %v}
			]},
			{"metric": "emissions", "data": [
				{"time": "2026-03-04T10:00:00Z", "value": 9000},
				{"time": "2026-03-04T11:00:00Z", "value": %v}
			]}
		]
	}`, powerMW, emissionsT)
}

func TestOracleLiveReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		// 20000 MW at 8000 t/h -> 400 gCO2/kWh
		fmt.Fprint(w, upstreamPayload(20000, 8000))
	}))
	defer srv.Close()

	o := NewOracle(srv.URL, "test-key", 2*time.Second, nil)
	r := o.Current(context.Background())
	if r.Source != SourceLive {
		t.Fatalf("source = %q, want live", r.Source)
	}
	if r.Intensity != 400 {
		t.Fatalf("intensity = %d, want 400", r.Intensity)
	}
	if r.Renewable != 60 {
		t.Fatalf("renewable = %d, want 60", r.Renewable)
	}
}

func TestOracleClampsExtremes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// absurd emissions force the upper clamp
		fmt.Fprint(w, upstreamPayload(1000, 90000))
	}))
	defer srv.Close()

	o := NewOracle(srv.URL, "k", 2*time.Second, nil)
	r := o.Current(context.Background())
	if r.Intensity != MaxIntensity {
		t.Fatalf("intensity = %d, want clamped to %d", r.Intensity, MaxIntensity)
	}
	if r.Renewable != 0 {
		t.Fatalf("renewable = %d, want 0", r.Renewable)
	}
}

func TestOracleFallsBackToSimulation(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "upstream 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json at all")
			},
		},
		{
			name: "missing emissions series",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data":[{"metric":"power","data":[{"time":"2026-03-04T11:00:00Z","value":20000}]}]}`)
			},
		},
		{
			name: "zero power sample",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, upstreamPayload(0, 8000))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			o := NewOracle(srv.URL, "k", 2*time.Second, nil)
			r := o.Current(context.Background())
			if r.Source != SourceSimulated {
				t.Fatalf("source = %q, want simulated fallback", r.Source)
			}
			if r.Intensity < MinIntensity || r.Intensity > MaxIntensity {
				t.Fatalf("fallback intensity %d out of bounds", r.Intensity)
			}
		})
	}
}

func TestOracleRawProxy(t *testing.T) {
	payload := upstreamPayload(20000, 8000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	o := NewOracle(srv.URL, "k", 2*time.Second, nil)
	raw, err := o.Raw(context.Background(), RawQuery{})
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("empty raw payload")
	}
}
