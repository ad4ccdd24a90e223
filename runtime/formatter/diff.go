package formatter

import (
	"fmt"
	"strings"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/metadata"
)

// DiffResult represents the differences between two sheets.
type DiffResult struct {
	NameChanged string      // Non-empty if the sheet name changed (format: "old -> new")
	Added       []EventDiff // Top-level events added in actual
	Removed     []EventDiff // Top-level events removed from expected
	Modified    []EventDiff // Top-level events whose rendering changed
}

// EventDiff represents a difference in a single top-level event.
type EventDiff struct {
	Index    int
	Expected string // Rendered expected event (empty for added events)
	Actual   string // Rendered actual event (empty for removed events)
}

// Empty reports whether no difference was found.
func (d *DiffResult) Empty() bool {
	return d.NameChanged == "" && len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Diff compares two sheets event by event, using their renderings.
func Diff(expected, actual *events.Sheet, reg *metadata.Registry) *DiffResult {
	result := &DiffResult{}
	if expected.Name != actual.Name {
		result.NameChanged = fmt.Sprintf("%s -> %s", expected.Name, actual.Name)
	}

	exp := expected.Children(events.RootID)
	act := actual.Children(events.RootID)
	for i := range max(len(exp), len(act)) {
		switch {
		case i >= len(act):
			result.Removed = append(result.Removed, EventDiff{Index: i, Expected: FormatEvent(expected, reg, exp[i])})
		case i >= len(exp):
			result.Added = append(result.Added, EventDiff{Index: i, Actual: FormatEvent(actual, reg, act[i])})
		default:
			e, a := FormatEvent(expected, reg, exp[i]), FormatEvent(actual, reg, act[i])
			if e != a {
				result.Modified = append(result.Modified, EventDiff{Index: i, Expected: e, Actual: a})
			}
		}
	}
	return result
}

// FormatDiff returns a human-readable diff display. Modified events show
// only the lines that differ.
func FormatDiff(result *DiffResult, useColor bool) string {
	var b strings.Builder

	if result.NameChanged != "" {
		fmt.Fprintf(&b, "%s\n\n", Colorize("Sheet renamed: "+result.NameChanged, ColorYellow, useColor))
	}

	if len(result.Modified) > 0 {
		fmt.Fprintln(&b, Colorize("Modified events:", ColorYellow, useColor))
		for _, d := range result.Modified {
			fmt.Fprintf(&b, "  event %d:\n", d.Index)
			removed, added := lineDiff(d.Expected, d.Actual)
			for _, line := range removed {
				fmt.Fprintf(&b, "    %s\n", Colorize("- "+line, ColorRed, useColor))
			}
			for _, line := range added {
				fmt.Fprintf(&b, "    %s\n", Colorize("+ "+line, ColorGreen, useColor))
			}
		}
		fmt.Fprintln(&b)
	}

	if len(result.Added) > 0 {
		fmt.Fprintln(&b, Colorize("Added events:", ColorGreen, useColor))
		for _, d := range result.Added {
			fmt.Fprintf(&b, "  %s\n", Colorize(fmt.Sprintf("+ event %d", d.Index), ColorGreen, useColor))
		}
		fmt.Fprintln(&b)
	}

	if len(result.Removed) > 0 {
		fmt.Fprintln(&b, Colorize("Removed events:", ColorRed, useColor))
		for _, d := range result.Removed {
			fmt.Fprintf(&b, "  %s\n", Colorize(fmt.Sprintf("- event %d", d.Index), ColorRed, useColor))
		}
		fmt.Fprintln(&b)
	}

	if result.Empty() {
		fmt.Fprintln(&b, "No differences found.")
	}
	return b.String()
}

// lineDiff returns the lines of a missing from b and of b missing from a,
// trimmed, in order.
func lineDiff(a, b string) (removed, added []string) {
	count := func(s string) map[string]int {
		m := make(map[string]int)
		for _, line := range strings.Split(s, "\n") {
			m[line]++
		}
		return m
	}
	inA, inB := count(a), count(b)
	for _, line := range strings.Split(a, "\n") {
		if inB[line] > 0 {
			inB[line]--
			continue
		}
		removed = append(removed, strings.TrimSpace(line))
	}
	for _, line := range strings.Split(b, "\n") {
		if inA[line] > 0 {
			inA[line]--
			continue
		}
		added = append(added, strings.TrimSpace(line))
	}
	return removed, added
}
