package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Point is a 2D coordinate.
type Point struct {
	X float64
	Y float64
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Union returns the smallest rect containing both rects.
// Zero-area rects still count: a vertical line widens the result.
func (r Rect) Union(other Rect) Rect {
	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// MarshalJSON encodes the rect the way the browser canvas code expects it.
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
	})
}

// SegmentOp is a path operation letter, matching Canvas2D / SVG absolute commands.
type SegmentOp byte

const (
	OpMove  SegmentOp = 'M'
	OpLine  SegmentOp = 'L'
	OpQuad  SegmentOp = 'Q'
	OpCubic SegmentOp = 'C'
	OpClose SegmentOp = 'Z'
)

// arity is the number of points carried by each op.
func (op SegmentOp) arity() int {
	switch op {
	case OpMove, OpLine:
		return 1
	case OpQuad:
		return 2
	case OpCubic:
		return 3
	default:
		return 0
	}
}

// Segment is one path command in absolute coordinates.
// For Q and C the last point is the end point, the others are control points.
type Segment struct {
	Op  SegmentOp
	Pts [3]Point
}

// MoveTo, LineTo, QuadTo, CubicTo and Close build segments.
func MoveTo(x, y float64) Segment { return Segment{Op: OpMove, Pts: [3]Point{{x, y}}} }
func LineTo(x, y float64) Segment { return Segment{Op: OpLine, Pts: [3]Point{{x, y}}} }
func QuadTo(cx, cy, x, y float64) Segment {
	return Segment{Op: OpQuad, Pts: [3]Point{{cx, cy}, {x, y}}}
}
func CubicTo(c1x, c1y, c2x, c2y, x, y float64) Segment {
	return Segment{Op: OpCubic, Pts: [3]Point{{c1x, c1y}, {c2x, c2y}, {x, y}}}
}
func Close() Segment { return Segment{Op: OpClose} }

// Points returns the points the segment uses.
func (s Segment) Points() []Point {
	return s.Pts[:s.Op.arity()]
}

// End returns the segment's end point, or false for Z.
func (s Segment) End() (Point, bool) {
	n := s.Op.arity()
	if n == 0 {
		return Point{}, false
	}
	return s.Pts[n-1], true
}

// Transform returns the segment with all of its points mapped through m.
func (s Segment) Transform(m Matrix2D) Segment {
	out := Segment{Op: s.Op}
	for i, p := range s.Points() {
		out.Pts[i] = m.Apply(p)
	}
	return out
}

// MarshalJSON encodes a segment in Canvas2D form: ["M", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
func (s Segment) MarshalJSON() ([]byte, error) {
	pts := s.Points()
	out := make([]interface{}, 0, 1+2*len(pts))
	out = append(out, string(rune(s.Op)))
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return errors.New("empty segment")
	}
	var op string
	if err := json.Unmarshal(raw[0], &op); err != nil || len(op) != 1 {
		return fmt.Errorf("bad segment op %s", raw[0])
	}
	out := Segment{Op: SegmentOp(op[0])}
	switch out.Op {
	case OpMove, OpLine, OpQuad, OpCubic, OpClose:
	default:
		return fmt.Errorf("bad segment op %q", op)
	}
	n := out.Op.arity()
	if len(raw) != 1+2*n {
		return fmt.Errorf("bad segment %s", data)
	}
	for i := range n {
		if err := json.Unmarshal(raw[1+2*i], &out.Pts[i].X); err != nil {
			return err
		}
		if err := json.Unmarshal(raw[2+2*i], &out.Pts[i].Y); err != nil {
			return err
		}
	}
	*s = out
	return nil
}

// bounder accumulates an axis-aligned box point by point.
type bounder struct {
	minX, minY, maxX, maxY float64
	seen                   bool
}

func (b *bounder) add(p Point) {
	if !b.seen {
		b.minX, b.maxX = p.X, p.X
		b.minY, b.maxY = p.Y, p.Y
		b.seen = true
		return
	}
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

func (b *bounder) rect() Rect {
	if !b.seen {
		return Rect{}
	}
	return Rect{X: b.minX, Y: b.minY, Width: b.maxX - b.minX, Height: b.maxY - b.minY}
}

// PathBounds computes the tight axis-aligned bounding box of a path in world space.
// Curves contribute their extrema, not their control points.
func PathBounds(path []Segment, m Matrix2D) Rect {
	var b bounder
	var cur, start Point

	for _, seg := range path {
		w := seg.Transform(m)
		switch seg.Op {
		case OpMove:
			cur, start = w.Pts[0], w.Pts[0]
			b.add(cur)
		case OpLine:
			cur = w.Pts[0]
			b.add(cur)
		case OpQuad:
			p0, p1, p2 := cur, w.Pts[0], w.Pts[1]
			b.add(p2)
			for _, t := range quadExtrema(p0.X, p1.X, p2.X) {
				b.add(quadAt(p0, p1, p2, t))
			}
			for _, t := range quadExtrema(p0.Y, p1.Y, p2.Y) {
				b.add(quadAt(p0, p1, p2, t))
			}
			cur = p2
		case OpCubic:
			p0, p1, p2, p3 := cur, w.Pts[0], w.Pts[1], w.Pts[2]
			b.add(p3)
			for _, t := range cubicExtrema(p0.X, p1.X, p2.X, p3.X) {
				b.add(cubicAt(p0, p1, p2, p3, t))
			}
			for _, t := range cubicExtrema(p0.Y, p1.Y, p2.Y, p3.Y) {
				b.add(cubicAt(p0, p1, p2, p3, t))
			}
			cur = p3
		case OpClose:
			cur = start
		}
	}

	return b.rect()
}

func quadAt(p0, p1, p2 Point, t float64) Point {
	mt := 1 - t
	return Point{
		X: mt*mt*p0.X + 2*mt*t*p1.X + t*t*p2.X,
		Y: mt*mt*p0.Y + 2*mt*t*p1.Y + t*t*p2.Y,
	}
}

func cubicAt(p0, p1, p2, p3 Point, t float64) Point {
	mt := 1 - t
	a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// quadExtrema returns the parameter in (0, 1) where a quadratic's derivative is zero.
func quadExtrema(a, b, c float64) []float64 {
	den := a - 2*b + c
	if den == 0 {
		return nil
	}
	t := (a - b) / den
	if t > 0 && t < 1 {
		return []float64{t}
	}
	return nil
}

// cubicExtrema returns the parameters in (0, 1) where a cubic's derivative is zero.
func cubicExtrema(p0, p1, p2, p3 float64) []float64 {
	// B'(t)/3 = a t^2 + b t + c
	a := -p0 + 3*p1 - 3*p2 + p3
	b := 2 * (p0 - 2*p1 + p2)
	c := p1 - p0

	var roots []float64
	keep := func(t float64) {
		if t > 0 && t < 1 {
			roots = append(roots, t)
		}
	}

	const eps = 1e-12
	if math.Abs(a) < eps {
		if math.Abs(b) >= eps {
			keep(-c / b)
		}
		return roots
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	keep((-b + sq) / (2 * a))
	keep((-b - sq) / (2 * a))
	return roots
}
