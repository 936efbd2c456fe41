// Package tui renders scenarios and analysis verdicts for a terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown with glamour. The style
// follows the terminal background; output that is not a terminal gets plain text.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// ScenarioMarkdown describes a scenario as a heading, its description and a
// table of segments with the cumulative end time of each.
func ScenarioMarkdown(s *domain.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(s.Description))
	}
	fmt.Fprintf(&b, "Total %.1f h", s.Duration()/3600)
	if s.TimeStep > 0 {
		fmt.Fprintf(&b, ", step %.0f s", s.TimeStep)
	}
	b.WriteString("\n\n| end (h) | power (%) | ASI band | target ASI |\n|---:|---:|:---:|---:|\n")
	end := 0.0
	for _, it := range s.Items {
		end += it.Duration
		band := "table"
		if it.ASIMax > it.ASIMin {
			band = fmt.Sprintf("%+.2f .. %+.2f", it.ASIMin, it.ASIMax)
		}
		target := "-"
		if it.ControlASI {
			target = fmt.Sprintf("%+.3f", it.TargetASI)
		}
		fmt.Fprintf(&b, "| %.2f | %.1f | %s | %s |\n", end/3600, it.PowerRatio*100, band, target)
	}
	return b.String()
}
