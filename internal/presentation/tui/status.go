package tui

import (
	"io"

	"github.com/muesli/termenv"
)

// Verdict colors text green when ok and red otherwise. The color profile is
// detected from w, so a pipe or buffer receives the text unchanged.
func Verdict(w io.Writer, ok bool, text string) string {
	out := termenv.NewOutput(w)
	color := "#22c55e"
	if !ok {
		color = "#ef4444"
	}
	return out.String(text).Foreground(out.Color(color)).Bold().String()
}
