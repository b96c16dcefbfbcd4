// Package ui provides colored diagnostics on stderr.
//
// Standard output is reserved for rendered manifests, so every helper here
// writes to Output instead.
package ui

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
)

// Output receives all diagnostics.
var Output io.Writer = os.Stderr

// Init disables color unless stderr is a terminal.
func Init() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}
}

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	Green.Fprintf(Output, "✓ "+format+"\n", args...)
}

// Error prints a red error message with X.
func Error(format string, args ...any) {
	Red.Fprintf(Output, "✗ "+format+"\n", args...)
}

// Warning prints a yellow warning message.
func Warning(format string, args ...any) {
	Yellow.Fprintf(Output, "⚠ "+format+"\n", args...)
}
