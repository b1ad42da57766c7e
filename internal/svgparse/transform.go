package svgparse

import (
	"fmt"
	"strings"

	"github.com/inamate/svgfit/internal/engine"
)

// parseTransform reads an SVG transform list. The result maps child
// coordinates into the parent's, with the leftmost function applied last.
func parseTransform(v string) (engine.Matrix2D, error) {
	m := engine.Identity()
	rest := strings.TrimSpace(v)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return engine.Identity(), fmt.Errorf("bad transform %q", v)
		}
		name := strings.ToLower(strings.Trim(rest[:open], " \t\r\n,"))
		args, err := numbers(rest[open+1 : end])
		if err != nil {
			return engine.Identity(), fmt.Errorf("transform %s: %w", name, err)
		}
		rest = strings.TrimLeft(rest[end+1:], " \t\r\n,")

		var t engine.Matrix2D
		switch {
		case name == "matrix" && len(args) == 6:
			t = engine.Matrix2D{args[0], args[1], args[2], args[3], args[4], args[5]}
		case name == "translate" && len(args) == 1:
			t = engine.Translate(args[0], 0)
		case name == "translate" && len(args) == 2:
			t = engine.Translate(args[0], args[1])
		case name == "scale" && len(args) == 1:
			t = engine.Scale(args[0], args[0])
		case name == "scale" && len(args) == 2:
			t = engine.Scale(args[0], args[1])
		case name == "rotate" && len(args) == 1:
			t = engine.RotateAbout(args[0], 0, 0)
		case name == "rotate" && len(args) == 3:
			t = engine.RotateAbout(args[0], args[1], args[2])
		case name == "skewx" && len(args) == 1:
			t = engine.SkewX(args[0])
		case name == "skewy" && len(args) == 1:
			t = engine.SkewY(args[0])
		default:
			return engine.Identity(), fmt.Errorf("unsupported transform %s with %d arguments", name, len(args))
		}
		m = m.Multiply(t)
	}
	return m, nil
}
