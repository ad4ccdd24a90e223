package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/executor"
)

// errDiffers is returned by diff when the sheets differ. It carries no
// message; the diff itself was already printed.
var errDiffers = errors.New("sheets differ")

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "load", "check", "run"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var (
		cliErr     *CLIError
		schemaErr  *events.SchemaError
		versionErr *events.VersionError
	)
	switch {
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case errors.As(err, &schemaErr):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), "invalid events document")
		for _, v := range schemaErr.Violations {
			_, _ = fmt.Fprintf(w, "  %s\n", Colorize(v, ColorGray, useColor))
		}
	case errors.As(err, &versionErr):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor),
			"this sheetc reads format "+events.FormatVersion+" and compatible versions")
	case errors.Is(err, executor.ErrLoopLimit):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor),
			"raise --max-loop-iterations if the loop is expected to run this long")
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}
