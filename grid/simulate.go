package grid

import "time"

// Simulate derives a carbon intensity estimate purely from the clock: hour of
// day, weekend flag and month, modeling the NEM's diurnal solar pattern and
// southern-hemisphere seasons. The same instant always yields the same
// reading, and as the guaranteed fallback path it must never fail.
func Simulate(now time.Time) Reading {
	hour := now.Hour()
	weekday := now.Weekday()
	isWeekend := weekday == time.Saturday || weekday == time.Sunday

	var intensity, renewable int
	switch {
	case hour >= 10 && hour <= 14:
		// solar peak: rooftop and utility PV flood the market
		if isWeekend {
			intensity = 180
		} else {
			intensity = 220
		}
		renewable = 75
	case hour >= 22 || hour <= 6:
		// overnight off-peak: wind plus baseload coal
		if isWeekend {
			intensity = 320
		} else {
			intensity = 380
		}
		renewable = 45
	default:
		// morning and evening peaks: gas peakers online
		if isWeekend {
			intensity = 450
		} else {
			intensity = 550
		}
		renewable = 27
	}

	switch now.Month() {
	case time.December, time.January, time.February, time.March:
		// summer into early autumn: longer solar window
		intensity -= 30
		renewable += 10
	case time.June, time.July, time.August, time.September:
		// winter: shorter days, heating load
		intensity += 50
		renewable -= 5
	}

	intensity = clampInt(intensity, 150, 800)
	renewable = clampInt(renewable, 10, 90)

	return Reading{
		Intensity: clampInt(intensity, MinIntensity, MaxIntensity),
		Renewable: clampInt(renewable, 0, 100),
		Timestamp: now,
		Source:    SourceSimulated,
		Region:    "NEM",
	}
}
