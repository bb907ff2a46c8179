// Package resolution grades how precisely a claim's occurrence window is
// specified. A narrow window earns a higher level and a larger reward
// multiplier. All functions are pure and deterministic.
package resolution

import (
	"time"
)

const (
	// MinLevel is the coarsest resolution level
	MinLevel = 1
	// MaxLevel is the finest resolution level
	MaxLevel = 5

	multiplierStep = 0.375 // 1.0 + 4*0.375 = 2.5
)

// ComputeLevel maps a window span to a discrete precision level. Bucket upper
// bounds are inclusive: a span of exactly one hour scores 5, exactly three
// hours scores 4, and so on.
func ComputeLevel(start, end time.Time) int {
	spanHours := end.Sub(start).Hours()
	switch {
	case spanHours <= 1:
		return 5
	case spanHours <= 3:
		return 4
	case spanHours <= 12:
		return 3
	case spanHours <= 24:
		return 2
	default:
		return MinLevel
	}
}

// MultiplierForLevel maps a resolution level to its reward multiplier,
// linearly from x1.0 at level 1 to x2.5 at level 5. Out-of-range levels are
// clamped.
func MultiplierForLevel(level int) float64 {
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return 1.0 + float64(level-1)*multiplierStep
}

// Window returns the occurrence window centered on the given timestamp with
// the given total duration in hours. Callers must supply a positive duration.
func Window(center time.Time, hours float64) (time.Time, time.Time) {
	half := time.Duration(hours / 2 * float64(time.Hour))
	return center.Add(-half), center.Add(half)
}
