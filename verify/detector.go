// Package verify decides whether photographic evidence satisfies a task's
// requirement. Detection itself is delegated to an external object-detection
// sidecar; this package owns only the acceptance rules.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrClassifierUnavailable is returned when the detection sidecar cannot be
// reached or is not ready. Callers must never grant credit on this error.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Prediction is one detected object with its confidence score in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Detector is a client for the object-detection sidecar. Construct it once at
// startup and reuse it; the readiness probe runs at most once.
type Detector struct {
	baseURL string
	client  *http.Client

	readyOnce sync.Once
	readyErr  error
}

// NewDetector builds a detector client. No network traffic happens until the
// first Detect call.
func NewDetector(baseURL string, timeout time.Duration) *Detector {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Detector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ready probes the sidecar health endpoint once. A failed probe marks the
// detector unavailable for the lifetime of the process; the operator restarts
// the sidecar and the service together.
func (d *Detector) ready(ctx context.Context) error {
	d.readyOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
		if err != nil {
			d.readyErr = err
			return
		}
		resp, err := d.client.Do(req)
		if err != nil {
			d.readyErr = err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			d.readyErr = fmt.Errorf("health status %d", resp.StatusCode)
		}
	})
	if d.readyErr != nil {
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, d.readyErr)
	}
	return nil
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Predictions []struct {
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
	Error string `json:"error,omitempty"`
}

// Detect runs the classifier over a base64-encoded image and returns the raw
// prediction list. The image stays in memory only for the duration of the call.
func (d *Detector) Detect(ctx context.Context, imageB64 string) ([]Prediction, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(detectRequest{Image: imageB64})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: detect status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrClassifierUnavailable, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrClassifierUnavailable, out.Error)
	}

	preds := make([]Prediction, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		preds = append(preds, Prediction{Label: p.Class, Confidence: p.Confidence})
	}
	return preds, nil
}
