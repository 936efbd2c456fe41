package loam

import (
	"github.com/aretw0/corefollow/pkg/domain"
)

// ScenarioMetadata is the frontmatter of a scenario document.
// The markdown body is used as the description when none is given.
type ScenarioMetadata struct {
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	TimeStep    float64        `json:"time_step" mapstructure:"time_step"`
	Items       []ItemMetadata `json:"items" mapstructure:"items"`
}

// ItemMetadata is one segment of a scenario.
type ItemMetadata struct {
	Duration   float64 `json:"duration" mapstructure:"duration"`
	Power      float64 `json:"power" mapstructure:"power"`
	ASIMin     float64 `json:"asi_min" mapstructure:"asi_min"`
	ASIMax     float64 `json:"asi_max" mapstructure:"asi_max"`
	TargetASI  float64 `json:"target_asi" mapstructure:"target_asi"`
	ControlASI bool    `json:"control_asi" mapstructure:"control_asi"`
}

func (m ItemMetadata) toDomain() domain.ScenarioItem {
	return domain.ScenarioItem{
		Duration:   m.Duration,
		PowerRatio: m.Power,
		ASIMin:     m.ASIMin,
		ASIMax:     m.ASIMax,
		TargetASI:  m.TargetASI,
		ControlASI: m.ControlASI,
	}
}
