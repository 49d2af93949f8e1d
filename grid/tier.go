package grid

// Tier buckets a carbon intensity reading into a reward band.
type Tier string

const (
	TierLow    Tier = "low"    // full credit
	TierMedium Tier = "medium" // half credit, needs explicit confirmation
	TierHigh   Tier = "high"   // no credit, retry at a cleaner time
)

// Tier thresholds in gCO2/kWh.
const (
	lowCeiling    = 300
	mediumCeiling = 500
)

// TierFor maps an intensity reading to its reward tier.
func TierFor(intensity int) Tier {
	switch {
	case intensity < lowCeiling:
		return TierLow
	case intensity < mediumCeiling:
		return TierMedium
	default:
		return TierHigh
	}
}

// Multiplier returns the reward multiplier for the tier.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierLow:
		return 1
	case TierMedium:
		return 0.5
	default:
		return 0
	}
}

// Advice returns the user-facing hint for the tier.
func (t Tier) Advice() string {
	switch t {
	case TierLow:
		return "Perfect time! The grid is running on clean energy."
	case TierMedium:
		return "Wait for solar hours (10 AM - 2 PM) for full points, or accept half credit now."
	default:
		return "The grid is carbon-heavy right now. Try again during solar hours (10 AM - 2 PM)."
	}
}
