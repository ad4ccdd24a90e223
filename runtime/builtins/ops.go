package builtins

import "strings"

// compareNumbers applies a relational operator. Unknown operators are false.
func compareNumbers(l float64, op string, r float64) bool {
	switch strings.TrimSpace(op) {
	case "=", "==":
		return l == r
	case "!=", "<>":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

// compareStrings applies a string comparison. Besides equality it supports
// the contains, startsWith and endsWith tests.
func compareStrings(l, op, r string) bool {
	switch strings.TrimSpace(op) {
	case "=", "==":
		return l == r
	case "!=", "<>":
		return l != r
	case "contains":
		return strings.Contains(l, r)
	case "startsWith":
		return strings.HasPrefix(l, r)
	case "endsWith":
		return strings.HasSuffix(l, r)
	}
	return false
}

// applyNumber combines the current value with v. Unknown operators leave the
// value unchanged.
func applyNumber(cur float64, op string, v float64) float64 {
	switch strings.TrimSpace(op) {
	case "=":
		return v
	case "+":
		return cur + v
	case "-":
		return cur - v
	case "*":
		return cur * v
	case "/":
		return cur / v
	}
	return cur
}

func applyString(cur, op, v string) string {
	switch strings.TrimSpace(op) {
	case "=":
		return v
	case "+":
		return cur + v
	}
	return cur
}

// parseTrueOrFalse reads a True/False parameter. Anything but "true" (in any
// case) is false, including the empty string.
func parseTrueOrFalse(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
