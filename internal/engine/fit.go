package engine

import (
	"math"
)

// Viewport is the fixed target drawing area.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoundingBox is the union of a set of bounding rectangles.
type BoundingBox struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Width returns MaxX - MinX.
func (b BoundingBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Rect converts the box to a Rect.
func (b BoundingBox) Rect() Rect {
	return Rect{X: b.MinX, Y: b.MinY, Width: b.Width(), Height: b.Height()}
}

// FitParameters is the uniform scale and translation that fits a bounding box into a viewport.
type FitParameters struct {
	ScaleFactor float64 `json:"scaleFactor"`
	OffsetX     float64 `json:"offsetX"`
	OffsetY     float64 `json:"offsetY"`

	// Degenerate is set when the box had no width or no height and the
	// scale fell back to 1.
	Degenerate bool `json:"degenerate"`
}

// Measure returns the union of the cached bounding rectangles of shapes.
// The second result is false for an empty slice.
func Measure(shapes []*Shape) (BoundingBox, bool) {
	var b bounder
	for _, s := range shapes {
		if s == nil {
			continue
		}
		r := s.BoundingRect()
		b.add(Point{X: r.X, Y: r.Y})
		b.add(Point{X: r.X + r.Width, Y: r.Y + r.Height})
	}
	if !b.seen {
		return BoundingBox{}, false
	}
	return BoundingBox{MinX: b.minX, MinY: b.minY, MaxX: b.maxX, MaxY: b.maxY}, true
}

// ComputeFit derives the fit of bbox into vp:
//
//	scale  = min(vp.Width/w, vp.Height/h)
//	offset = ((vp.Width - w*scale)/2, (vp.Height - h*scale)/2)
//
// When w or h is zero, or the scale is not a positive finite number, the scale
// falls back to 1 and the box is only recentred. A viewport side that is
// negative, NaN or infinite counts as zero, so the result is always finite.
func ComputeFit(bbox BoundingBox, vp Viewport) FitParameters {
	w, h := bbox.Width(), bbox.Height()
	vp = Viewport{Width: sanitize(vp.Width), Height: sanitize(vp.Height)}
	if !finite(w) || !finite(h) {
		return FitParameters{ScaleFactor: 1, Degenerate: true}
	}

	fit := FitParameters{ScaleFactor: 1}
	if w > 0 && h > 0 {
		s := math.Min(vp.Width/w, vp.Height/h)
		if s > 0 && finite(s) {
			fit.ScaleFactor = s
		} else {
			fit.Degenerate = true
		}
	} else {
		fit.Degenerate = true
	}

	fit.OffsetX = (vp.Width - w*fit.ScaleFactor) / 2
	fit.OffsetY = (vp.Height - h*fit.ScaleFactor) / 2
	return fit
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func sanitize(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

// Fit rescales and recentres shapes in place so that their union fills vp
// without distortion. Shape order is untouched. It returns false and does
// nothing when there are no shapes.
func Fit(shapes []*Shape, vp Viewport) (FitParameters, bool) {
	for _, s := range shapes {
		if s != nil {
			s.SetCoords()
		}
	}

	bbox, ok := Measure(shapes)
	if !ok {
		return FitParameters{}, false
	}

	fit := ComputeFit(bbox, vp)
	Apply(shapes, bbox, fit)
	return fit, true
}

// Apply moves and scales every shape by fit, relative to the top-left of bbox,
// and refreshes the cached bounds.
func Apply(shapes []*Shape, bbox BoundingBox, fit FitParameters) {
	s := fit.ScaleFactor
	for _, shape := range shapes {
		if shape == nil {
			continue
		}
		shape.X = (shape.X-bbox.MinX)*s + fit.OffsetX
		shape.Y = (shape.Y-bbox.MinY)*s + fit.OffsetY
		shape.SX *= s
		shape.SY *= s
		shape.SetCoords()
	}
}
