// Package cli holds the presentation helpers shared by the corefollow commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/aretw0/corefollow/internal/presentation/tui"
	"github.com/aretw0/corefollow/pkg/domain"
)

// StepPrinter writes one aligned row per operation step and flushes after every
// row so long runs show progress.
type StepPrinter struct {
	w      *tabwriter.Writer
	rods   []string
	header bool
}

// NewStepPrinter creates a printer with one column per rod, in name order.
func NewStepPrinter(w io.Writer, rods []string) *StepPrinter {
	return &StepPrinter{
		w:    tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight),
		rods: slices.Sorted(slices.Values(rods)),
	}
}

// Print writes r, preceded by the header on the first call.
func (p *StepPrinter) Print(r *domain.Result) {
	if !p.header {
		fmt.Fprint(p.w, "time(h)\tpower(%)\tkeff\tppm\tasi\tfq\tburnup")
		for _, id := range p.rods {
			fmt.Fprintf(p.w, "\t%s", id)
		}
		fmt.Fprint(p.w, "\tcode\t\n")
		p.header = true
	}
	fmt.Fprintf(p.w, "%.3f\t%.2f\t%.5f\t%.1f\t%.4f\t%.3f\t%.1f",
		r.Time/3600, r.Power*100, r.Eigenvalue, r.Boron, r.ASI, r.Fq, r.Burnup)
	for _, id := range p.rods {
		fmt.Fprintf(p.w, "\t%.1f", r.RodPositions[id])
	}
	fmt.Fprintf(p.w, "\t%d\t\n", r.Error)
	p.w.Flush()
}

// PrintSDM writes the margin breakdown. Penalties are shown with their sign so
// the column sums to the margin.
func PrintSDM(w io.Writer, r *domain.SDMResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value float64
	}{
		{"bite worth", r.BiteWorth},
		{"stuck rod " + r.StuckRod, -r.StuckRodWorth},
		{"power defect", -r.PowerDefect},
		{"xenon", -r.XenonWorth},
		{"samarium", -r.SamariumWorth},
		{"boron dilution", -r.BoronWorth},
		{"moderator cooldown", -r.TmWorth},
		{"void uncertainty", -r.VoidUncertainty},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%10.1f pcm\t\n", row.name, row.value)
	}
	status := "sufficient"
	if !r.Sufficient() {
		status = "INSUFFICIENT"
	}
	fmt.Fprintf(tw, "margin\t%10.1f pcm\t%s\n", r.Margin, tui.Verdict(w, r.Sufficient(), status))
	for _, id := range slices.Sorted(maps.Keys(r.BankWorths)) {
		fmt.Fprintf(tw, "bank %s\t%10.1f pcm\t\n", id, r.BankWorths[id])
	}
	tw.Flush()
}

// WriteJSON writes v as a single line of JSON.
func WriteJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
