// Package grid answers "how clean is the electricity right now". The live path
// queries the OpenElectricity (OpenNEM) API for the National Electricity
// Market; any failure falls back to a deterministic time-based simulation, so
// a reading is always available and callers never see a fetch error.
package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Intensity clamp bounds in gCO2/kWh. Values outside this range indicate a
// bad sample rather than a real grid state.
const (
	MinIntensity = 100
	MaxIntensity = 1000
)

// Reading sources.
const (
	SourceLive      = "live"
	SourceSimulated = "simulated"
)

// Reading is one point-in-time carbon intensity estimate. Readings are never
// cached; every grid-gated claim gets a fresh one.
type Reading struct {
	Intensity int       `json:"intensity_gco2_kwh"`
	Renewable int       `json:"renewable_percent"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Region    string    `json:"region"`
}

// Oracle fetches or derives the current grid carbon intensity. The API key is
// held here, server side, and never reaches a client.
type Oracle struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewOracle builds an oracle for the given upstream. log may be nil.
func NewOracle(baseURL, apiKey string, timeout time.Duration, log *zap.SugaredLogger) *Oracle {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Oracle{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log,
		now:     time.Now,
	}
}

// Current returns the present carbon intensity, preferring live data and
// falling back to simulation on any failure. It never returns an error.
func (o *Oracle) Current(ctx context.Context) Reading {
	reading, err := o.fetchLive(ctx)
	if err != nil {
		if o.log != nil {
			o.log.Warnf("grid fetch failed, using simulation: %v", err)
		}
		return Simulate(o.now())
	}
	return reading
}

// openNEMResponse mirrors the parts of the upstream payload we read.
type openNEMResponse struct {
	Data []struct {
		Metric string `json:"metric"`
		Data   []struct {
			Time  string  `json:"time"`
			Value float64 `json:"value"`
		} `json:"data"`
	} `json:"data"`
}

func (o *Oracle) newUpstreamRequest(ctx context.Context, metrics, interval string, hours int) (*http.Request, error) {
	end := o.now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)

	params := url.Values{}
	params.Set("metrics", metrics)
	params.Set("interval", interval)
	params.Set("date_start", start.Format(time.RFC3339))
	params.Set("date_end", end.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		o.baseURL+"/data/network/NEM?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("User-Agent", "CoralCollective-App/1.0")
	return req, nil
}

func (o *Oracle) fetchLive(ctx context.Context) (Reading, error) {
	req, err := o.newUpstreamRequest(ctx, "power,emissions", "1h", 24)
	if err != nil {
		return Reading{}, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Reading{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var payload openNEMResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Reading{}, fmt.Errorf("decode upstream payload: %w", err)
	}

	return readingFromSeries(payload)
}

// RawQuery selects the window and series for a raw upstream fetch. Zero
// values fall back to the defaults the intensity path uses.
type RawQuery struct {
	Metrics  string
	Interval string
	Hours    int
}

// Raw fetches the upstream payload without interpretation, for clients that
// want to chart the series themselves. The API key stays on this side.
func (o *Oracle) Raw(ctx context.Context, q RawQuery) (json.RawMessage, error) {
	metrics := q.Metrics
	if metrics == "" {
		metrics = "power,emissions"
	}
	interval := q.Interval
	if interval == "" {
		interval = "1h"
	}
	hours := q.Hours
	if hours <= 0 || hours > 24*7 {
		hours = 24
	}

	req, err := o.newUpstreamRequest(ctx, metrics, interval, hours)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

// readingFromSeries derives intensity from the latest power/emissions sample:
// intensity = tonnes CO2 * 1e6 / (MW * 1000), i.e. grams per kWh.
func readingFromSeries(payload openNEMResponse) (Reading, error) {
	var powerMW, emissionsT float64
	var havePower, haveEmissions bool
	var ts string

	for _, series := range payload.Data {
		if len(series.Data) == 0 {
			continue
		}
		last := series.Data[len(series.Data)-1]
		switch series.Metric {
		case "power":
			powerMW = last.Value
			havePower = true
			ts = last.Time
		case "emissions":
			emissionsT = last.Value
			haveEmissions = true
		}
	}

	if !havePower || !haveEmissions {
		return Reading{}, fmt.Errorf("payload missing power or emissions series")
	}
	if powerMW <= 0 {
		return Reading{}, fmt.Errorf("non-positive power sample %v", powerMW)
	}

	intensity := clampInt(int(math.Round(emissionsT*1e6/(powerMW*1000))), MinIntensity, MaxIntensity)
	renewable := clampInt(100-intensity/10, 0, 100)

	stamp, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		stamp = time.Now()
	}

	return Reading{
		Intensity: intensity,
		Renewable: renewable,
		Timestamp: stamp,
		Source:    SourceLive,
		Region:    "NEM",
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
