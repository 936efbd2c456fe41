package domain

// TargetInitialASI asks a scenario item to hold the ASI observed at the start of the maneuver.
const TargetInitialASI = -1.0

// ScenarioItem is one segment of a power maneuver.
type ScenarioItem struct {
	// Duration of the segment in seconds.
	Duration float64 `json:"duration" yaml:"duration" mapstructure:"duration"`

	// PowerRatio is the relative power the segment drives toward.
	PowerRatio float64 `json:"power" yaml:"power" mapstructure:"power"`

	// ASIMin and ASIMax bound the allowed axial shape index; a zero-width interval means
	// the engine's allowance table applies.
	ASIMin float64 `json:"asi_min" yaml:"asi_min" mapstructure:"asi_min"`
	ASIMax float64 `json:"asi_max" yaml:"asi_max" mapstructure:"asi_max"`

	TargetASI  float64 `json:"target_asi" yaml:"target_asi" mapstructure:"target_asi"`
	ControlASI bool    `json:"control_asi" yaml:"control_asi" mapstructure:"control_asi"`
}

// HasAllowance reports whether the item carries its own ASI interval.
func (s ScenarioItem) HasAllowance() bool {
	return s.ASIMax > s.ASIMin
}

// Scenario is a named, reusable maneuver.
type Scenario struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	TimeStep    float64        `json:"time_step" yaml:"time_step" mapstructure:"time_step"`
	Items       []ScenarioItem `json:"items" yaml:"items" mapstructure:"items"`
}

// Duration returns the total length of the scenario in seconds.
func (s Scenario) Duration() float64 {
	total := 0.0
	for _, it := range s.Items {
		total += it.Duration
	}
	return total
}
