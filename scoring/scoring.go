// Package scoring turns a task plus an accepted multiplier into the signed
// point and CO2 deltas the ledger applies. It holds no state and touches no
// I/O; everything that can fail has already happened by the time it runs.
package scoring

import (
	"math"

	"github.com/coralcollective/coral/catalog"
)

// Decision is the credited outcome of a claim or an un-claim.
type Decision struct {
	Multiplier float64 `json:"multiplier"`
	PointDelta int     `json:"point_delta"`
	CO2DeltaKg float64 `json:"co2_delta_kg"`
}

// Complete computes the positive deltas for a claim accepted at the given
// multiplier. Multiplier is 1 for unverified and photo-verified claims, and
// the grid tier's value (1, 0.5 or 0) for grid-gated claims.
func Complete(task *catalog.Task, multiplier float64) Decision {
	return Decision{
		Multiplier: multiplier,
		PointDelta: int(math.Round(float64(task.Points) * multiplier)),
		CO2DeltaKg: task.CarbonSavingKg * multiplier,
	}
}

// Uncomplete negates a full-credit completion. Partial-credit grid claims are
// reverted with UncompleteAt to keep the round-trip exact.
func Uncomplete(task *catalog.Task) Decision {
	return UncompleteAt(task, 1)
}

// UncompleteAt negates a completion that was credited at the given multiplier.
func UncompleteAt(task *catalog.Task, multiplier float64) Decision {
	d := Complete(task, multiplier)
	d.PointDelta = -d.PointDelta
	d.CO2DeltaKg = -d.CO2DeltaKg
	return d
}
