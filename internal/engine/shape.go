package engine

import (
	"image/color"
)

// Shape kinds produced by the SVG parser.
const (
	KindRect     = "rect"
	KindCircle   = "circle"
	KindEllipse  = "ellipse"
	KindLine     = "line"
	KindPolyline = "polyline"
	KindPolygon  = "polygon"
	KindPath     = "path"
)

// Paint holds the resolved presentation attributes of a shape.
type Paint struct {
	Fill          color.Color // nil means no fill
	Stroke        color.Color // nil means no stroke
	StrokeWidth   float64     // in the shape's local units
	Opacity       float64     // element opacity times inherited group opacity
	FillOpacity   float64
	StrokeOpacity float64
	EvenOdd       bool
	LineCap       string // butt, round, square
	LineJoin      string // miter, round, bevel
}

// DefaultPaint is the SVG initial paint: black fill, no stroke.
func DefaultPaint() Paint {
	return Paint{
		Fill:          color.NRGBA{0, 0, 0, 0xff},
		StrokeWidth:   1,
		Opacity:       1,
		FillOpacity:   1,
		StrokeOpacity: 1,
		LineCap:       "butt",
		LineJoin:      "miter",
	}
}

// Shape is a drawable unit. Its world transform is
//
//	Translate(X, Y) * Scale(SX, SY) * Inner
//
// so moving and scaling a shape never touches its geometry, and scaling happens
// around the shape's position.
type Shape struct {
	ID   string
	Kind string

	// Position and scale, mutated by Fit.
	X, Y   float64
	SX, SY float64

	// Inner holds rotation, skew and any residual transform from the document.
	Inner Matrix2D

	// Path is the geometry in local coordinates.
	Path  []Segment
	Paint Paint

	// cached world-space bounds, refreshed by SetCoords
	bounds Rect
}

// NewShape builds a shape from local geometry placed by ctm. The shape is
// normalized so its position is the top-left of its bounding rectangle and its
// scale is 1, matching how retained canvas libraries report left/top.
func NewShape(id, kind string, path []Segment, ctm Matrix2D, paint Paint) *Shape {
	bounds := PathBounds(path, ctm)
	s := &Shape{
		ID:    id,
		Kind:  kind,
		X:     bounds.X,
		Y:     bounds.Y,
		SX:    1,
		SY:    1,
		Inner: Translate(-bounds.X, -bounds.Y).Multiply(ctm),
		Path:  path,
		Paint: paint,
	}
	s.bounds = bounds
	return s
}

// Matrix returns the shape's world transform.
func (s *Shape) Matrix() Matrix2D {
	return Translate(s.X, s.Y).Multiply(Scale(s.SX, s.SY)).Multiply(s.Inner)
}

// SetCoords recomputes the cached bounding rectangle from the current transform.
// Call it after changing position or scale.
func (s *Shape) SetCoords() {
	s.bounds = PathBounds(s.Path, s.Matrix())
}

// BoundingRect returns the cached world-space bounding rectangle.
func (s *Shape) BoundingRect() Rect {
	return s.bounds
}

// WorldPath returns the geometry mapped into world space.
func (s *Shape) WorldPath() []Segment {
	m := s.Matrix()
	out := make([]Segment, len(s.Path))
	if m.IsIdentity() {
		copy(out, s.Path)
		return out
	}
	for i, seg := range s.Path {
		out[i] = seg.Transform(m)
	}
	return out
}

// WorldStrokeWidth is the stroke width in world units.
func (s *Shape) WorldStrokeWidth() float64 {
	return s.Paint.StrokeWidth * s.Matrix().LineScale()
}

// FillColor returns the fill with fill-opacity and opacity applied, or nil.
func (p Paint) FillColor() color.Color {
	return withAlpha(p.Fill, p.FillOpacity*p.Opacity)
}

// StrokeColor returns the stroke with stroke-opacity and opacity applied, or nil.
// A zero stroke width disables the stroke.
func (p Paint) StrokeColor() color.Color {
	if p.StrokeWidth <= 0 {
		return nil
	}
	return withAlpha(p.Stroke, p.StrokeOpacity*p.Opacity)
}

func withAlpha(c color.Color, alpha float64) color.Color {
	if c == nil {
		return nil
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	alpha = min(max(alpha, 0), 1)
	n.A = uint8(float64(n.A)*alpha + 0.5)
	return n
}
