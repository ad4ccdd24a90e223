package variable

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FormatNumber renders a float the way JavaScript's Number#toString does:
// shortest round-trip digits, plain notation in [1e-6, 1e21), exponent
// notation outside it.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + string(sign) + exp
}

// ParseNumber converts a string to a number with parseFloat semantics: the
// longest valid numeric prefix is used and anything unparsable reads as 0.
func ParseNumber(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	if s == "" {
		return 0
	}

	rest := s
	sign := ""
	if rest[0] == '+' || rest[0] == '-' {
		sign, rest = rest[:1], rest[1:]
	}
	if strings.HasPrefix(rest, "Infinity") {
		if sign == "-" {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	end := numericPrefix(rest)
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(sign+rest[:end], 64)
	if err != nil && !math.IsInf(f, 0) {
		return 0
	}
	return f
}

// numericPrefix returns the length of the longest prefix of s shaped like
// digits[.digits][e[+-]digits].
func numericPrefix(s string) int {
	i := 0
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		start := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > start {
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// JSON returns the compact JSON form of the variable. Structure keys keep
// their insertion order. Non-finite numbers are written as null.
func (v *Variable) JSON() string {
	var b strings.Builder
	v.writeJSON(&b)
	return b.String()
}

func (v *Variable) writeJSON(b *strings.Builder) {
	switch v.typ {
	case Number:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(FormatNumber(v.num))
	case String:
		QuoteJSON(b, v.str)
	case Boolean:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Structure:
		b.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			QuoteJSON(b, k)
			b.WriteByte(':')
			v.children[k].writeJSON(b)
		}
		b.WriteByte('}')
	case Array:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeJSON(b)
		}
		b.WriteByte(']')
	}
}

// QuoteJSON writes s as a JSON string literal with JSON.stringify escaping:
// no HTML escaping, control characters as short escapes or \u00XX.
func QuoteJSON(b *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.WriteString(`�`)
			} else {
				b.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
		i++
	}
	b.WriteByte('"')
}
