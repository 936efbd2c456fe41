package domain

import "math"

const (
	// PCM converts Δk/k to pcm.
	PCM = 1e5

	secondsPerHour = 3600.0
	secondsPerDay  = 86400.0
)

// Reactivity returns the reactivity of eigenvalue k in pcm.
func Reactivity(k float64) float64 {
	if k == 0 {
		return math.Inf(-1)
	}
	return (k - 1) / k * PCM
}

// Seconds converts a depletion step length to seconds.
// MWD steps need the specific power (MW/MTU) and the relative power level.
func (u TimeUnit) Seconds(v, specificPower, power float64) float64 {
	switch u {
	case TimeHours:
		return v * secondsPerHour
	case TimeMWD:
		if specificPower <= 0 || power <= 0 {
			return 0
		}
		return v / (specificPower * power) * secondsPerDay
	default:
		return v
	}
}

// BurnupIncrement returns the exposure gained in MWD/MTU over an energy
// fraction (relative power integrated over seconds) at the given specific power.
func BurnupIncrement(energyFraction, specificPower float64) float64 {
	return energyFraction * specificPower / secondsPerDay
}
