package svgparse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const pathCommands = "MmLlHhVvCcSsQqTtAaZz"

const (
	// Largest summed magnitude of pre-scaled path values. Kept well below
	// 2^25, where a 26.6 fixed-point coordinate overflows int32.
	maxPathExtent = 1 << 22
	maxPathScale  = 1 << 16
)

type pathToken struct {
	cmd    byte
	value  float64
	scaled bool
}

// tokenizePath splits path data into commands and arguments. Arc flags may
// be written without separators ("01"). Arc rotation and flags are marked
// unscaled.
func tokenizePath(d string) ([]pathToken, error) {
	b := []byte(d)
	var (
		toks []pathToken
		cmd  byte
		arg  int
	)
	for i := 0; i < len(b); {
		c := b[i]
		if isSeparator(c) {
			i++
			continue
		}
		if strings.IndexByte(pathCommands, c) >= 0 {
			cmd, arg = c, 0
			toks = append(toks, pathToken{cmd: c})
			i++
			continue
		}
		if cmd == 0 {
			return nil, fmt.Errorf("path data must start with a command, got %q", c)
		}

		arc := cmd == 'A' || cmd == 'a'
		if arc && (arg%7 == 3 || arg%7 == 4) {
			if c != '0' && c != '1' {
				return nil, fmt.Errorf("bad arc flag %q", c)
			}
			toks = append(toks, pathToken{value: float64(c - '0')})
			i++
			arg++
			continue
		}

		v, n := number(b[i:])
		if n == 0 {
			return nil, fmt.Errorf("bad path data at %q", d[i:])
		}
		if !finite(v) {
			return nil, fmt.Errorf("path value %q out of range", d[i:i+n])
		}
		toks = append(toks, pathToken{value: v, scaled: !(arc && arg%7 == 2)})
		i += n
		arg++
	}
	return toks, nil
}

// scalePathData rewrites d with every coordinate and length multiplied by a
// power of two k, chosen so the values use the precision of oksvg's 26.6
// fixed-point path without overflowing it. Dividing the compiled points by k
// restores the original units exactly.
func scalePathData(d string) (string, float64, error) {
	toks, err := tokenizePath(d)
	if err != nil {
		return "", 0, err
	}

	var sum float64
	for _, t := range toks {
		if t.scaled {
			sum += math.Abs(t.value)
		}
	}
	k := float64(maxPathScale)
	if sum > 0 {
		k = math.Min(k, math.Exp2(math.Floor(math.Log2(maxPathExtent/sum))))
	}
	if k == 0 || !finite(k) {
		return "", 0, fmt.Errorf("path coordinates out of range")
	}

	var sb strings.Builder
	for _, t := range toks {
		if t.cmd != 0 {
			sb.WriteByte(t.cmd)
			continue
		}
		v := t.value
		if t.scaled {
			v *= k
		}
		// plain decimals: oksvg misreads exponents with a plus sign
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		sb.WriteByte(' ')
	}
	return sb.String(), k, nil
}
