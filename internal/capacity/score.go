package capacity

import "time"

// Discretization thresholds for a clamped [0,1] score.
const (
	resourcedThreshold = 0.6
	stretchedThreshold = 0.3
)

// StateForScore discretizes a capacity score into a State.
// The score must already be clamped to [0,1].
func StateForScore(score float64) State {
	switch {
	case score > resourcedThreshold:
		return StateResourced
	case score > stretchedThreshold:
		return StateStretched
	default:
		return StateDepleted
	}
}

// TimeOfDayModifier returns the score adjustment for an hour of day (0-23).
// Mornings lift capacity, the early-afternoon dip and late evenings lower it.
func TimeOfDayModifier(hour int) float64 {
	switch {
	case hour < 7:
		return -0.2
	case hour < 10:
		return 0.1
	case hour >= 13 && hour < 15:
		return -0.15
	case hour >= 21:
		return -0.1
	default:
		return 0
	}
}

// WeekdayModifier returns the score adjustment for a day of week.
// time.Weekday numbers Sunday = 0, matching the convention the
// Monday/Friday/weekend adjustments are keyed to.
func WeekdayModifier(day time.Weekday) float64 {
	switch day {
	case time.Monday:
		return -0.15
	case time.Friday:
		return 0.1
	case time.Saturday, time.Sunday:
		return 0.05
	default:
		return 0
	}
}

// Modifier returns the score adjustment for a category.
func (c Category) Modifier() float64 {
	switch c {
	case CategorySensory:
		return -0.25
	case CategoryDemand:
		return -0.15
	case CategorySocial:
		return -0.1
	default:
		return 0
	}
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
