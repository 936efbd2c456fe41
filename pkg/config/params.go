package config

import (
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/operation"
	"github.com/mitchellh/mapstructure"
)

// XenonParams configures a fission product transient at fixed power and rods.
type XenonParams struct {
	XenonFactor float64 `mapstructure:"xenon_factor"`
}

// FlexibleParams configures a flexible maneuver. Exactly one of Scenario, Items and
// Schedule provides the power history. Ramp rates are in %/min and the initial power
// in percent of rated.
type FlexibleParams struct {
	RampDown      float64  `mapstructure:"ramp_down"`
	RampUp        float64  `mapstructure:"ramp_up"`
	InitialPower  *float64 `mapstructure:"initial_power"`
	FuelDepletion bool     `mapstructure:"fuel_depletion"`

	ASISensitivity float64 `mapstructure:"asi_sensitivity"`
	ASIIterations  int     `mapstructure:"asi_iterations"`
	XenonFactor    float64 `mapstructure:"xenon_factor"`

	Scenario string                   `mapstructure:"scenario"`
	Items    []domain.ScenarioItem    `mapstructure:"items"`
	Schedule *operation.PowerSchedule `mapstructure:"schedule"`
}

// StartupParams is a flexible maneuver from a shut-down core.
type StartupParams struct {
	FlexibleParams `mapstructure:",squash"`

	ShutdownTime float64            `mapstructure:"shutdown_time"`
	Rods         map[string]float64 `mapstructure:"rods"`
}

// CoastdownParams sets the lowest relative power of a coastdown.
type CoastdownParams struct {
	TargetPower float64 `mapstructure:"target_power"`
	XenonFactor float64 `mapstructure:"xenon_factor"`
}

// ECPParams configures an estimated-critical-position run.
type ECPParams struct {
	Strategy  domain.ECPStrategy `mapstructure:"strategy"`
	Shutdown  float64            `mapstructure:"shutdown"`
	TargetCBC *float64           `mapstructure:"target_cbc"`
}

// GeneralParams holds the depletion treatment of every step.
type GeneralParams struct {
	Depletion domain.DepletionOption `mapstructure:"depletion"`
}

// OperationParams decodes Operation.Params into the struct of the configured kind.
func (c *Case) OperationParams() (any, error) {
	var out any
	switch c.OperationKind() {
	case KindXenon:
		out = &XenonParams{}
	case KindFlexible:
		out = &FlexibleParams{}
	case KindStartup:
		out = &StartupParams{}
	case KindCoastdown:
		out = &CoastdownParams{}
	case KindECP:
		out = &ECPParams{}
	case KindGeneral:
		out = &GeneralParams{Depletion: domain.DefaultDepletion()}
	default:
		return nil, fmt.Errorf("%w: unknown operation kind %q", domain.ErrConfiguration, c.Operation.Kind)
	}
	if err := Decode(c.Operation.Params, out); err != nil {
		return nil, fmt.Errorf("%w: %s params: %w", domain.ErrConfiguration, c.OperationKind(), err)
	}
	if err := validateParams(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode maps free-form input onto out. Enum strings go through their
// UnmarshalText and unknown keys are errors.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func validateParams(p any) error {
	var flex *FlexibleParams
	switch v := p.(type) {
	case *XenonParams:
		return validateXenonFactor(v.XenonFactor)
	case *CoastdownParams:
		return validateXenonFactor(v.XenonFactor)
	case *FlexibleParams:
		flex = v
	case *StartupParams:
		flex = &v.FlexibleParams
		if v.ShutdownTime < 0 {
			return fmt.Errorf("%w: negative shutdown time", domain.ErrConfiguration)
		}
	case *ECPParams:
		if v.Shutdown < 0 {
			return fmt.Errorf("%w: negative ecp shutdown window", domain.ErrConfiguration)
		}
	}
	if flex == nil {
		return nil
	}
	if err := validateXenonFactor(flex.XenonFactor); err != nil {
		return err
	}
	sources := 0
	for _, set := range []bool{flex.Scenario != "", len(flex.Items) > 0, flex.Schedule != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("%w: flexible maneuver needs exactly one of scenario, items or schedule", domain.ErrConfiguration)
	}
	return nil
}

func validateXenonFactor(f float64) error {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: xenon factor %g", domain.ErrConfiguration, f)
	}
	return nil
}
