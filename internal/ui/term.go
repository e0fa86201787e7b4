package ui

import (
	"io"

	"golang.org/x/term"
)

// minConsoleWidth keeps the tables legible when the probe reports a
// degenerate column count.
const minConsoleWidth = 40

// consoleWidth picks the paint width for out: the terminal's column count
// when out is attached to one, fallback otherwise.
func consoleWidth(out io.Writer, fallback int) int {
	type fdProvider interface {
		Fd() uintptr
	}
	v, ok := out.(fdProvider)
	if !ok {
		return fallback
	}
	cols, _, err := term.GetSize(int(v.Fd()))
	if err != nil || cols <= 0 {
		return fallback
	}
	if cols < minConsoleWidth {
		return minConsoleWidth
	}
	return cols
}
