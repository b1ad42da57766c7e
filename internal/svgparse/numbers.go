package svgparse

import (
	"fmt"
	"math"
	"strings"

	"github.com/tdewolff/parse/v2/strconv"
)

func isSeparator(c byte) bool {
	return c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// number reads the float at the front of b and returns it with the number of
// bytes used. A count of 0 means b does not start with a number.
func number(b []byte) (float64, int) {
	f, n := strconv.ParseFloat(b)
	for _, c := range b[:n] {
		if c >= '0' && c <= '9' {
			return f, n
		}
	}
	return 0, 0
}

// numbers splits an SVG number list ("10,20 -5.5e1.5") into floats.
// Separators are whitespace and commas; a sign or a second dot also starts a number.
func numbers(s string) ([]float64, error) {
	var out []float64
	b := []byte(s)
	for i := 0; i < len(b); {
		if isSeparator(b[i]) {
			i++
			continue
		}
		f, n := number(b[i:])
		if n == 0 {
			return out, fmt.Errorf("bad number at %q", s[i:])
		}
		if !finite(f) {
			return out, fmt.Errorf("number %q out of range", s[i:i+n])
		}
		out = append(out, f)
		i += n
	}
	return out, nil
}

// unit sizes in px at 96dpi
var unitScale = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 96.0 / 72.0,
	"pc": 16,
	"mm": 96.0 / 25.4,
	"cm": 96.0 / 2.54,
	"in": 96,
}

// length parses an SVG length. Percentages resolve against ref.
func length(v string, ref float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, n := number([]byte(v))
	if n == 0 || !finite(f) {
		return 0, fmt.Errorf("bad length %q", v)
	}

	unit := strings.ToLower(strings.TrimSpace(v[n:]))
	if unit == "%" {
		return f / 100 * ref, nil
	}
	scale, ok := unitScale[unit]
	if !ok {
		// em/ex and friends need font metrics; assume a 16px font
		switch unit {
		case "em", "rem":
			scale = 16
		case "ex":
			scale = 8
		default:
			return 0, fmt.Errorf("unknown unit in %q", v)
		}
	}
	return f * scale, nil
}
