// Package svgparse turns SVG text into an ordered list of drawable shapes.
package svgparse

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/inamate/svgfit/internal/engine"
	"github.com/inamate/svgfit/internal/typeid"
)

// ErrMalformed is returned for text that is not an SVG document.
var ErrMalformed = errors.New("malformed svg")

// maxUseDepth bounds <use> indirection, which also breaks reference cycles.
const maxUseDepth = 16

// elements whose content never renders directly
var skipped = map[string]bool{
	"defs": true, "title": true, "desc": true, "metadata": true, "style": true,
	"clipPath": true, "mask": true, "linearGradient": true, "radialGradient": true,
	"pattern": true, "symbol": true, "marker": true, "filter": true, "script": true,
}

// Document is the result of parsing.
type Document struct {
	Shapes []*engine.Shape
	// Width and Height come from the viewBox, or the width/height attributes.
	Width, Height float64
	// Warnings lists everything that was skipped or approximated.
	Warnings []error
}

// Parser converts SVG text to shapes.
type Parser struct {
	log   *zap.Logger
	newID func() string
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger warnings are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithIDs replaces the shape ID generator.
func WithIDs(next func() string) Option {
	return func(p *Parser) { p.newID = next }
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{log: zap.NewNop(), newID: typeid.NewShapeID}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns the drawable shapes of text in document order. Warnings are
// logged, not returned.
func (p *Parser) Parse(text string) ([]*engine.Shape, error) {
	doc, err := p.ParseDocument(text)
	if err != nil {
		return nil, err
	}
	for _, w := range doc.Warnings {
		p.log.Warn("SVG element skipped or approximated", zap.Error(w))
	}
	return doc.Shapes, nil
}

// ParseDocument parses text and reports warnings alongside the shapes.
func (p *Parser) ParseDocument(text string) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromString(text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("%w: root element is not <svg>", ErrMalformed)
	}

	w := &walker{p: p, root: root, ids: make(map[string]*etree.Element)}
	w.viewport(root)
	w.index(root)

	w.walk(root, engine.Identity(), defaultStyle(), 0)

	return &Document{
		Shapes:   w.shapes,
		Width:    w.vw,
		Height:   w.vh,
		Warnings: multierr.Errors(w.warnings),
	}, nil
}

// Parse parses text with a default parser.
func Parse(text string, opts ...Option) ([]*engine.Shape, error) {
	return New(opts...).Parse(text)
}

// walker holds the state of one parse.
type walker struct {
	p        *Parser
	root     *etree.Element
	vw, vh   float64
	sheet    stylesheet
	ids      map[string]*etree.Element
	shapes   []*engine.Shape
	warnings error
}

func (w *walker) warn(e *etree.Element, err error) {
	w.warnings = multierr.Append(w.warnings, fmt.Errorf("<%s>: %w", e.Tag, err))
}

// viewport records the root size used to resolve percentages.
func (w *walker) viewport(root *etree.Element) {
	w.vw, w.vh = 300, 150 // CSS default replaced element size

	if vb, ok := attr(root, "viewBox"); ok {
		nums, err := numbers(vb)
		if err == nil && len(nums) == 4 && nums[2] > 0 && nums[3] > 0 {
			w.vw, w.vh = nums[2], nums[3]
			return
		}
		w.warn(root, fmt.Errorf("bad viewBox %q", vb))
	}
	if v, ok := attr(root, "width"); ok {
		if f, err := length(v, w.vw); err == nil && f > 0 {
			w.vw = f
		}
	}
	if v, ok := attr(root, "height"); ok {
		if f, err := length(v, w.vh); err == nil && f > 0 {
			w.vh = f
		}
	}
}

// index collects id targets for <use> and the rules of every <style> element.
func (w *walker) index(e *etree.Element) {
	if id, ok := attr(e, "id"); ok {
		w.ids[id] = e
	}
	if e.Tag == "style" {
		for _, err := range w.sheet.add(e.Text()) {
			w.warn(e, err)
		}
	}
	for _, child := range e.ChildElements() {
		w.index(child)
	}
}

func (w *walker) walk(e *etree.Element, ctm engine.Matrix2D, parent style, depth int) {
	if e.Space != "" && e.Space != "svg" {
		// editor metadata such as sodipodi:namedview
		return
	}
	if skipped[e.Tag] {
		return
	}

	st, visible := w.style(e, parent)
	if !visible {
		return
	}

	if v, ok := attr(e, "transform"); ok {
		t, err := parseTransform(v)
		if err != nil {
			w.warn(e, err)
		} else {
			ctm = ctm.Multiply(t)
		}
	}

	switch e.Tag {
	case "svg":
		if e != w.root {
			x, y, err := w.point(e, "x", "y")
			if err != nil {
				w.warn(e, err)
			}
			ctm = ctm.Multiply(engine.Translate(x, y))
		}
		w.children(e, ctm, st, depth)
	case "g", "a", "switch":
		w.children(e, ctm, st, depth)
	case "use":
		w.use(e, ctm, st, depth)
	case engine.KindRect, engine.KindCircle, engine.KindEllipse, engine.KindLine,
		engine.KindPolyline, engine.KindPolygon, engine.KindPath:
		w.shape(e, ctm, st)
	default:
		w.warn(e, errors.New("unsupported element"))
	}
}

func (w *walker) children(e *etree.Element, ctm engine.Matrix2D, st style, depth int) {
	for _, child := range e.ChildElements() {
		w.walk(child, ctm, st, depth)
	}
}

func (w *walker) use(e *etree.Element, ctm engine.Matrix2D, st style, depth int) {
	if depth >= maxUseDepth {
		w.warn(e, errors.New("reference chain too deep"))
		return
	}

	href, ok := attr(e, "href")
	if !ok {
		href, ok = attr(e, "xlink:href")
	}
	if !ok || !strings.HasPrefix(href, "#") {
		w.warn(e, fmt.Errorf("unsupported reference %q", href))
		return
	}
	target, ok := w.ids[href[1:]]
	if !ok {
		w.warn(e, fmt.Errorf("unknown reference %q", href))
		return
	}

	x, y, err := w.point(e, "x", "y")
	if err != nil {
		w.warn(e, err)
	}
	ctm = ctm.Multiply(engine.Translate(x, y))

	if target.Tag == "symbol" {
		w.children(target, ctm, st, depth+1)
		return
	}
	w.walk(target, ctm, st, depth+1)
}

func (w *walker) shape(e *etree.Element, ctm engine.Matrix2D, st style) {
	segs, err := w.geometry(e)
	if err != nil {
		w.warn(e, err)
		return
	}
	if len(segs) == 0 || st.hidden {
		return
	}

	paint, err := st.paint()
	if err != nil {
		w.warn(e, err)
	}

	w.shapes = append(w.shapes, engine.NewShape(w.p.newID(), e.Tag, segs, ctm, paint))
}

// style computes the element's style: presentation attributes, then sheet
// rules, then the inline style attribute. It reports false for display:none.
func (w *walker) style(e *etree.Element, parent style) (style, bool) {
	st := parent

	var decls []declaration
	for _, a := range e.Attr {
		if a.Space == "" && styleProps[a.Key] {
			decls = append(decls, declaration{name: a.Key, value: a.Value})
		}
	}
	decls = append(decls, w.sheet.declarations(e)...)
	if v, ok := attr(e, "style"); ok {
		inline, err := inlineDeclarations(v)
		if err != nil {
			w.warn(e, fmt.Errorf("style attribute: %w", err))
		}
		decls = append(decls, inline...)
	}

	for _, d := range decls {
		if !styleProps[d.name] {
			continue
		}
		visible, err := st.set(d)
		if err != nil {
			w.warn(e, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		if !visible {
			return st, false
		}
	}
	return st, true
}

// attr returns an attribute value. Keys may carry a namespace prefix ("xlink:href").
func attr(e *etree.Element, key string) (string, bool) {
	a := e.SelectAttr(key)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// length reads a length attribute; missing attributes are 0.
func (w *walker) length(e *etree.Element, key string, ref float64) (float64, error) {
	v, ok := attr(e, key)
	if !ok {
		return 0, nil
	}
	f, err := length(v, ref)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// point reads a horizontal and a vertical length attribute.
func (w *walker) point(e *etree.Element, xKey, yKey string) (float64, float64, error) {
	x, err := w.length(e, xKey, w.vw)
	if err != nil {
		return 0, 0, err
	}
	y, err := w.length(e, yKey, w.vh)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// diagonal is the reference for percentages that are neither horizontal nor vertical.
func (w *walker) diagonal() float64 {
	return math.Sqrt((w.vw*w.vw + w.vh*w.vh) / 2)
}
