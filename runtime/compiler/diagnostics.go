package compiler

import (
	"fmt"
	"strings"
)

// Severity grades a diagnostic. None of them stops compilation.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Code identifies the kind of problem.
type Code string

const (
	CodeUnknownInstruction    Code = "unknown-instruction"
	CodeUnknownFunction       Code = "unknown-function"
	CodeUnknownEvent          Code = "unknown-event"
	CodeInvalidElse           Code = "invalid-else"
	CodeMalformedExpression   Code = "malformed-expression"
	CodeImplicitVariable      Code = "implicit-variable"
	CodeUnresolvedLink        Code = "unresolved-link"
	CodeLinkCycle             Code = "link-cycle"
	CodeWhileWithoutCondition Code = "while-without-conditions"
)

// Diagnostic reports a recoverable problem found while compiling.
type Diagnostic struct {
	Severity   Severity
	Code       Code
	Sheet      string
	Path       string
	Message    string
	Suggestion string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Sheet != "" {
		b.WriteString(d.Sheet)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%s: %s [%s]: %s", d.Path, d.Severity, d.Code, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", d.Suggestion)
	}
	return b.String()
}
