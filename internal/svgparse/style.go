package svgparse

import (
	"fmt"
	"image/color"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/srwiley/oksvg"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/inamate/svgfit/internal/engine"
)

// style is the inherited presentation state while walking the tree.
type style struct {
	fill, stroke, color string

	strokeWidth   float64
	opacity       float64 // product of ancestor opacities, opacity itself does not inherit
	fillOpacity   float64
	strokeOpacity float64
	evenOdd       bool
	lineCap       string
	lineJoin      string
	hidden        bool
}

func defaultStyle() style {
	return style{
		fill:          "black",
		stroke:        "none",
		color:         "black",
		strokeWidth:   1,
		opacity:       1,
		fillOpacity:   1,
		strokeOpacity: 1,
		lineCap:       "butt",
		lineJoin:      "miter",
	}
}

// presentation attributes understood by the parser
var styleProps = map[string]bool{
	"fill":            true,
	"stroke":          true,
	"color":           true,
	"stroke-width":    true,
	"opacity":         true,
	"fill-opacity":    true,
	"stroke-opacity":  true,
	"fill-rule":       true,
	"stroke-linecap":  true,
	"stroke-linejoin": true,
	"display":         true,
	"visibility":      true,
}

// declaration is one property: value pair.
type declaration struct {
	name, value string
}

// set applies one declaration. It reports false when the element must not render (display:none).
func (s *style) set(d declaration) (bool, error) {
	v := strings.TrimSpace(d.value)
	if v == "inherit" || v == "" {
		return true, nil
	}

	switch d.name {
	case "fill":
		s.fill = v
	case "stroke":
		s.stroke = v
	case "color":
		s.color = v
	case "stroke-width":
		w, err := length(v, 0)
		if err != nil {
			return true, err
		}
		s.strokeWidth = w
	case "opacity":
		f, err := fraction(v)
		if err != nil {
			return true, err
		}
		s.opacity *= f
	case "fill-opacity":
		f, err := fraction(v)
		if err != nil {
			return true, err
		}
		s.fillOpacity = f
	case "stroke-opacity":
		f, err := fraction(v)
		if err != nil {
			return true, err
		}
		s.strokeOpacity = f
	case "fill-rule":
		s.evenOdd = v == "evenodd"
	case "stroke-linecap":
		s.lineCap = v
	case "stroke-linejoin":
		s.lineJoin = v
	case "display":
		if v == "none" {
			return false, nil
		}
	case "visibility":
		s.hidden = v == "hidden" || v == "collapse"
	}
	return true, nil
}

// paint resolves colors into an engine.Paint.
func (s *style) paint() (engine.Paint, error) {
	p := engine.DefaultPaint()
	p.StrokeWidth = s.strokeWidth
	p.Opacity = s.opacity
	p.FillOpacity = s.fillOpacity
	p.StrokeOpacity = s.strokeOpacity
	p.EvenOdd = s.evenOdd
	p.LineCap = s.lineCap
	p.LineJoin = s.lineJoin

	var err error
	if p.Fill, err = s.resolveColor(s.fill); err != nil {
		return p, fmt.Errorf("fill: %w", err)
	}
	if p.Stroke, err = s.resolveColor(s.stroke); err != nil {
		return p, fmt.Errorf("stroke: %w", err)
	}
	return p, nil
}

// resolveColor parses a paint value. Gradients and patterns use their
// fallback color when one is given, black otherwise.
func (s *style) resolveColor(v string) (color.Color, error) {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	switch {
	case lower == "currentcolor":
		v = s.color
	case strings.HasPrefix(lower, "url("):
		end := strings.IndexByte(v, ')')
		if end < 0 || strings.TrimSpace(v[end+1:]) == "" {
			return color.NRGBA{A: 0xff}, nil
		}
		v = strings.TrimSpace(v[end+1:])
	case strings.HasPrefix(lower, "rgba("):
		return parseRGBA(v)
	case lower == "transparent":
		return nil, nil
	}
	if strings.HasPrefix(v, "#") && len(v) != 4 && len(v) != 7 {
		return nil, fmt.Errorf("bad color %q", v)
	}
	return oksvg.ParseSVGColor(v)
}

func parseRGBA(v string) (color.Color, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "rgba("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bad color %q", v)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	rgb, err := oksvg.ParseSVGColor("rgb(" + strings.Join(parts[:3], ",") + ")")
	if err != nil {
		return nil, err
	}
	a, err := fraction(parts[3])
	if err != nil {
		return nil, err
	}
	n := color.NRGBAModel.Convert(rgb).(color.NRGBA)
	n.A = uint8(a*255 + 0.5)
	return n, nil
}

// fraction parses a number or percentage clamped to [0, 1].
func fraction(v string) (float64, error) {
	v = strings.TrimSpace(v)
	div := 1.0
	if strings.HasSuffix(v, "%") {
		v, div = v[:len(v)-1], 100
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", v, err)
	}
	return min(max(f/div, 0), 1), nil
}

// inlineDeclarations parses a style="..." attribute.
func inlineDeclarations(v string) ([]declaration, error) {
	p := css.NewParser(parse.NewInputString(v), true)
	var out []declaration
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err != nil && err != io.EOF {
				return out, err
			}
			return out, nil
		case css.DeclarationGrammar:
			out = append(out, declaration{
				name:  strings.ToLower(string(data)),
				value: tokensString(p.Values()),
			})
		}
	}
}

func tokensString(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String())
}

// rule is one selector of a <style> sheet with its declarations.
type rule struct {
	kind     byte // '#', '.', or 't' for a type selector
	name     string
	decls    []declaration
	position int
}

func (r rule) specificity() int {
	switch r.kind {
	case '#':
		return 2
	case '.':
		return 1
	default:
		return 0
	}
}

func (r rule) matches(el *etree.Element) bool {
	switch r.kind {
	case '#':
		return el.SelectAttrValue("id", "") == r.name
	case '.':
		for _, c := range strings.Fields(el.SelectAttrValue("class", "")) {
			if c == r.name {
				return true
			}
		}
		return false
	default:
		return r.name == "*" || el.Tag == r.name
	}
}

// stylesheet holds the simple rules found in <style> elements.
// Only type, class and id selectors are supported.
type stylesheet struct {
	rules []rule
}

// add parses a <style> element body. Unsupported selectors are returned as warnings.
func (ss *stylesheet) add(text string) []error {
	p := css.NewParser(parse.NewInputString(text), false)
	var warnings []error
	var current []rule

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err != nil && err != io.EOF {
				warnings = append(warnings, fmt.Errorf("style sheet: %w", err))
			}
			return warnings
		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			// a grouped selector list arrives as qualified rules followed by the ruleset
			for _, sel := range splitSelectors(data, p.Values()) {
				r, ok := parseSelector(sel)
				if !ok {
					warnings = append(warnings, fmt.Errorf("unsupported selector %q", sel))
					continue
				}
				current = append(current, r)
			}
		case css.DeclarationGrammar:
			d := declaration{name: strings.ToLower(string(data)), value: tokensString(p.Values())}
			for i := range current {
				current[i].decls = append(current[i].decls, d)
			}
		case css.EndRulesetGrammar:
			for _, r := range current {
				r.position = len(ss.rules)
				ss.rules = append(ss.rules, r)
			}
			current = nil
		case css.BeginAtRuleGrammar:
			warnings = append(warnings, fmt.Errorf("unsupported at-rule %s", data))
		}
	}
}

func splitSelectors(data []byte, values []css.Token) []string {
	var b strings.Builder
	b.Write(data)
	for _, t := range values {
		b.Write(t.Data)
	}
	var out []string
	for _, s := range strings.Split(b.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseSelector(sel string) (rule, bool) {
	if strings.ContainsAny(sel, " >+~:[") {
		return rule{}, false
	}
	switch sel[0] {
	case '#', '.':
		if len(sel) < 2 || strings.ContainsAny(sel[1:], "#.") {
			return rule{}, false
		}
		return rule{kind: sel[0], name: sel[1:]}, true
	default:
		if strings.ContainsAny(sel, "#.") {
			return rule{}, false
		}
		return rule{kind: 't', name: sel}, true
	}
}

// declarations returns the sheet declarations matching el, least specific first.
func (ss *stylesheet) declarations(el *etree.Element) []declaration {
	var matched []rule
	for _, r := range ss.rules {
		if r.matches(el) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].specificity() != matched[j].specificity() {
			return matched[i].specificity() < matched[j].specificity()
		}
		return matched[i].position < matched[j].position
	})

	var out []declaration
	for _, r := range matched {
		out = append(out, r.decls...)
	}
	return out
}
