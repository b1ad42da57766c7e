package svgparse

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"github.com/inamate/svgfit/internal/engine"
)

// Magic number for bezier approximation of a circle/ellipse
// k = 4 * (sqrt(2) - 1) / 3 ≈ 0.5522847498
const kappa = 0.5522847498

// geometry converts a shape element into local path segments.
// A nil result with a nil error means the element draws nothing.
func (w *walker) geometry(e *etree.Element) ([]engine.Segment, error) {
	switch e.Tag {
	case engine.KindRect:
		return w.rectPath(e)
	case engine.KindCircle:
		cx, cy, err := w.point(e, "cx", "cy")
		if err != nil {
			return nil, err
		}
		r, err := w.length(e, "r", w.diagonal())
		if err != nil {
			return nil, err
		}
		if r <= 0 {
			return nil, nil
		}
		return ellipsePath(cx, cy, r, r), nil
	case engine.KindEllipse:
		cx, cy, err := w.point(e, "cx", "cy")
		if err != nil {
			return nil, err
		}
		rx, ry, err := w.point(e, "rx", "ry")
		if err != nil {
			return nil, err
		}
		if rx <= 0 || ry <= 0 {
			return nil, nil
		}
		return ellipsePath(cx, cy, rx, ry), nil
	case engine.KindLine:
		x1, y1, err := w.point(e, "x1", "y1")
		if err != nil {
			return nil, err
		}
		x2, y2, err := w.point(e, "x2", "y2")
		if err != nil {
			return nil, err
		}
		return []engine.Segment{engine.MoveTo(x1, y1), engine.LineTo(x2, y2)}, nil
	case engine.KindPolyline, engine.KindPolygon:
		return polyPath(e.SelectAttrValue("points", ""), e.Tag == engine.KindPolygon)
	case engine.KindPath:
		return compilePath(e.SelectAttrValue("d", ""))
	}
	return nil, fmt.Errorf("unsupported element <%s>", e.Tag)
}

func (w *walker) rectPath(e *etree.Element) ([]engine.Segment, error) {
	x, y, err := w.point(e, "x", "y")
	if err != nil {
		return nil, err
	}
	width, height, err := w.point(e, "width", "height")
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, nil
	}

	rx, ry, err := w.point(e, "rx", "ry")
	if err != nil {
		return nil, err
	}
	_, hasRX := attr(e, "rx")
	_, hasRY := attr(e, "ry")
	switch {
	case hasRX && !hasRY:
		ry = rx
	case hasRY && !hasRX:
		rx = ry
	}
	rx = min(max(rx, 0), width/2)
	ry = min(max(ry, 0), height/2)

	if rx == 0 || ry == 0 {
		return []engine.Segment{
			engine.MoveTo(x, y),
			engine.LineTo(x+width, y),
			engine.LineTo(x+width, y+height),
			engine.LineTo(x, y+height),
			engine.Close(),
		}, nil
	}

	kx, ky := rx*kappa, ry*kappa
	r, b := x+width, y+height
	return []engine.Segment{
		engine.MoveTo(x+rx, y),
		engine.LineTo(r-rx, y),
		engine.CubicTo(r-rx+kx, y, r, y+ry-ky, r, y+ry),
		engine.LineTo(r, b-ry),
		engine.CubicTo(r, b-ry+ky, r-rx+kx, b, r-rx, b),
		engine.LineTo(x+rx, b),
		engine.CubicTo(x+rx-kx, b, x, b-ry+ky, x, b-ry),
		engine.LineTo(x, y+ry),
		engine.CubicTo(x, y+ry-ky, x+rx-kx, y, x+rx, y),
		engine.Close(),
	}, nil
}

// ellipsePath approximates an ellipse with four cubic curves.
func ellipsePath(cx, cy, rx, ry float64) []engine.Segment {
	kx, ky := rx*kappa, ry*kappa
	return []engine.Segment{
		engine.MoveTo(cx+rx, cy),
		engine.CubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry),
		engine.CubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy),
		engine.CubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry),
		engine.CubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy),
		engine.Close(),
	}
}

func polyPath(points string, closed bool) ([]engine.Segment, error) {
	nums, err := numbers(points)
	if err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}
	if len(nums)%2 == 1 {
		// an odd coordinate is dropped, as browsers do
		nums = nums[:len(nums)-1]
	}
	if len(nums) < 4 {
		return nil, nil
	}

	segs := make([]engine.Segment, 0, len(nums)/2+1)
	segs = append(segs, engine.MoveTo(nums[0], nums[1]))
	for i := 2; i+1 < len(nums); i += 2 {
		segs = append(segs, engine.LineTo(nums[i], nums[i+1]))
	}
	if closed {
		segs = append(segs, engine.Close())
	}
	return segs, nil
}

// compilePath turns path data into segments. The data is pre-scaled and
// compiled by oksvg into a rasterx.Path, which is replayed into a
// segmentAdder that undoes the scale.
func compilePath(d string) ([]engine.Segment, error) {
	if d == "" {
		return nil, nil
	}

	scaled, k, err := scalePathData(d)
	if err != nil {
		return nil, fmt.Errorf("path data: %w", err)
	}

	var cursor oksvg.PathCursor
	if err := cursor.CompilePath(scaled); err != nil {
		return nil, fmt.Errorf("path data: %w", err)
	}

	adder := segmentAdder{scale: k}
	cursor.Path.AddTo(&adder)
	return adder.segs, nil
}

// segmentAdder implements rasterx.Adder, recording segments in float
// coordinates divided by scale.
type segmentAdder struct {
	segs  []engine.Segment
	scale float64
}

var _ rasterx.Adder = (*segmentAdder)(nil)

func (a *segmentAdder) fromFixed(p fixed.Point26_6) (float64, float64) {
	s := 64 * a.scale
	if s == 0 {
		s = 64
	}
	return float64(p.X) / s, float64(p.Y) / s
}

func (a *segmentAdder) Start(p fixed.Point26_6) {
	x, y := a.fromFixed(p)
	a.segs = append(a.segs, engine.MoveTo(x, y))
}

func (a *segmentAdder) Line(b fixed.Point26_6) {
	x, y := a.fromFixed(b)
	a.segs = append(a.segs, engine.LineTo(x, y))
}

func (a *segmentAdder) QuadBezier(b, c fixed.Point26_6) {
	bx, by := a.fromFixed(b)
	cx, cy := a.fromFixed(c)
	a.segs = append(a.segs, engine.QuadTo(bx, by, cx, cy))
}

func (a *segmentAdder) CubeBezier(b, c, d fixed.Point26_6) {
	bx, by := a.fromFixed(b)
	cx, cy := a.fromFixed(c)
	dx, dy := a.fromFixed(d)
	a.segs = append(a.segs, engine.CubicTo(bx, by, cx, cy, dx, dy))
}

func (a *segmentAdder) Stop(closeLoop bool) {
	if closeLoop && len(a.segs) > 0 && a.segs[len(a.segs)-1].Op != engine.OpClose {
		a.segs = append(a.segs, engine.Close())
	}
}
