package verify

import (
	"context"

	"github.com/coralcollective/coral/catalog"
)

// Confidence thresholds. Category targets accept looser matches because many
// object classes loosely qualify as recyclable.
const (
	singleLabelThreshold = 0.5
	categoryThreshold    = 0.3
)

// recyclableLabels is the allow-list for the recycling_bin category target.
var recyclableLabels = map[string]bool{
	// bottles and containers
	"bottle":     true,
	"wine glass": true,
	"cup":        true,
	// cans and metal
	"can":  true,
	"bowl": true,
	// electronics (e-waste)
	"cell phone": true,
	"laptop":     true,
	"keyboard":   true,
	"mouse":      true,
	"remote":     true,
	"tv":         true,
	// paper and cardboard
	"book":     true,
	"scissors": true,
	// plastic items
	"toothbrush": true,
	"hair drier": true,
}

// Result is the outcome of a verification attempt. On rejection Detected
// carries everything the classifier saw, for user feedback.
type Result struct {
	Accepted     bool         `json:"accepted"`
	MatchedLabel string       `json:"matched_label,omitempty"`
	Confidence   float64      `json:"confidence,omitempty"`
	Detected     []Prediction `json:"detected,omitempty"`
}

// Verify runs the classifier over the image and applies the task's acceptance
// rule. It is pure apart from the detection call: no credit is granted here.
func (d *Detector) Verify(ctx context.Context, imageB64 string, task *catalog.Task) (Result, error) {
	preds, err := d.Detect(ctx, imageB64)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(preds, task.VerificationTarget), nil
}

// Evaluate applies the acceptance rule for a verification target to a
// prediction list. Split out from Verify so the rule is testable without a
// running sidecar.
func Evaluate(preds []Prediction, target string) Result {
	accept := func(p Prediction) bool {
		if isCategoryTarget(target) {
			return recyclableLabels[p.Label] && p.Confidence > categoryThreshold
		}
		return p.Label == target && p.Confidence > singleLabelThreshold
	}

	best := -1
	for i, p := range preds {
		if !accept(p) {
			continue
		}
		if best < 0 || p.Confidence > preds[best].Confidence {
			best = i
		}
	}

	if best < 0 {
		return Result{Accepted: false, Detected: preds}
	}
	return Result{
		Accepted:     true,
		MatchedLabel: preds[best].Label,
		Confidence:   preds[best].Confidence,
	}
}

func isCategoryTarget(target string) bool {
	return target == "recycling_bin"
}
