package domain

import "maps"

// CalculationOption describes how a steady-state solve or criticality search is performed.
// It is passed by reference and may be echoed back modified.
type CalculationOption struct {
	Search     SearchMode `json:"search" yaml:"search"`
	ShapeMatch ShapeMatch `json:"shape_match" yaml:"shape_match"`

	FeedbackFuel      bool `json:"feed_tf" yaml:"feed_tf"`
	FeedbackModerator bool `json:"feed_tm" yaml:"feed_tm"`

	Xenon    PoisonMode `json:"xenon" yaml:"xenon"`
	Samarium PoisonMode `json:"samarium" yaml:"samarium"`

	// InletTemp is the coolant inlet temperature in °C.
	InletTemp float64 `json:"tin" yaml:"tin"`

	TargetEigenvalue float64 `json:"eigvt" yaml:"eigvt"`
	MaxIter          int     `json:"maxiter" yaml:"maxiter"`
	Epsilon          float64 `json:"epsiter" yaml:"epsiter"`

	// Boron is the boron concentration (or initial guess for CBC searches) in ppm.
	Boron float64 `json:"ppm" yaml:"ppm"`

	// Power is the relative power level (or initial guess for POWER searches).
	Power float64 `json:"plevel" yaml:"plevel"`

	// B10Abundance scales the boron-10 absorption (1.0 = natural).
	B10Abundance float64 `json:"b10a" yaml:"b10a"`

	Time float64 `json:"time" yaml:"time"`

	// SearchRod designates the bank adjusted by ROD searches.
	SearchRod string `json:"search_rod,omitempty" yaml:"search_rod,omitempty"`

	// RodPositions overrides bank positions before solving.
	RodPositions map[string]float64 `json:"rod_pos,omitempty" yaml:"rod_pos,omitempty"`
}

// DefaultOption returns the nominal hot full power CBC option.
func DefaultOption() CalculationOption {
	return CalculationOption{
		Search:            SearchBoron,
		FeedbackFuel:      true,
		FeedbackModerator: true,
		Xenon:             PoisonEquilibrium,
		Samarium:          PoisonTransient,
		InletTemp:         290,
		TargetEigenvalue:  1.0,
		MaxIter:           100,
		Epsilon:           1e-5,
		Boron:             500,
		Power:             1.0,
		B10Abundance:      1.0,
	}
}

// Clone returns a copy whose rod override map is independent.
func (o CalculationOption) Clone() CalculationOption {
	c := o
	if o.RodPositions != nil {
		c.RodPositions = make(map[string]float64, len(o.RodPositions))
		maps.Copy(c.RodPositions, o.RodPositions)
	}
	return c
}

// DepletionOption configures a depletion sub-step.
type DepletionOption struct {
	Isotope  DepletionIsotope `json:"isotope" yaml:"isotope" mapstructure:"isotope"`
	Xenon    PoisonMode       `json:"xenon" yaml:"xenon" mapstructure:"xenon"`
	Samarium PoisonMode       `json:"samarium" yaml:"samarium" mapstructure:"samarium"`

	// Time is the step length expressed in TimeUnit.
	Time     float64  `json:"time" yaml:"time" mapstructure:"time"`
	TimeUnit TimeUnit `json:"time_unit" yaml:"time_unit" mapstructure:"time_unit"`

	// XenonFactor amplifies xenon production (1.0 = nominal).
	XenonFactor float64 `json:"xeamp" yaml:"xeamp" mapstructure:"xeamp"`
}

// DefaultDepletion returns a full depletion step with transient poisons.
func DefaultDepletion() DepletionOption {
	return DepletionOption{
		Isotope:     DepleteAll,
		Xenon:       PoisonTransient,
		Samarium:    PoisonTransient,
		TimeUnit:    TimeSeconds,
		XenonFactor: 1,
	}
}

// DepletionRequest is what the engine hands to the flux solver for one depletion sub-step.
type DepletionRequest struct {
	Option DepletionOption

	// Duration is the step length in seconds.
	Duration float64

	// EnergyFraction is the integral of relative power over the step, in seconds.
	EnergyFraction float64
}
