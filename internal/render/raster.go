// Package render paints fitted shapes into raster images.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"github.com/inamate/svgfit/internal/engine"
)

// maxRasterDim is the maximum pixel dimension (width or height) allowed when
// rasterizing, so a hostile configuration cannot allocate gigabytes.
const maxRasterDim = 8192

// Raster paints shapes with the rasterx scanline rasterizer.
// Each Paint starts from a fresh background.
type Raster struct {
	Background color.Color

	img *image.RGBA
}

var _ engine.Painter = (*Raster)(nil)

// NewRaster returns a Raster painter over the given background (white when nil).
func NewRaster(bg color.Color) *Raster {
	if bg == nil {
		bg = color.White
	}
	return &Raster{Background: bg}
}

// Paint rasterizes shapes in order.
func (r *Raster) Paint(shapes []*engine.Shape, vp engine.Viewport) error {
	w, h := pixelSize(vp)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: r.Background}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)

	for _, s := range shapes {
		path := s.WorldPath()

		if fill := s.Paint.FillColor(); fill != nil {
			dasher.Clear()
			filler := &dasher.Filler
			filler.SetWinding(!s.Paint.EvenOdd)
			addPath(filler, path)
			filler.SetColor(fill)
			filler.Draw()
			filler.SetWinding(true)
		}

		if stroke := s.Paint.StrokeColor(); stroke != nil {
			width := s.WorldStrokeWidth()
			if width <= 0 {
				continue
			}
			dasher.Clear()
			dasher.SetStroke(toFixed(width), toFixed(4), lineCap(s.Paint.LineCap), lineCap(s.Paint.LineCap),
				rasterx.RoundGap, lineJoin(s.Paint.LineJoin), nil, 0)
			addPath(dasher, path)
			dasher.SetColor(stroke)
			dasher.Draw()
		}
	}

	r.img = dst
	return nil
}

// Image returns the last painted image, or nil before the first Paint.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

func pixelSize(vp engine.Viewport) (int, int) {
	w := max(int(math.Ceil(vp.Width)), 1)
	h := max(int(math.Ceil(vp.Height)), 1)
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}
	return w, h
}

func toFixed(f float64) fixed.Int26_6 {
	return fixed.Int26_6(f * 64)
}

func toFixedPoint(p engine.Point) fixed.Point26_6 {
	return fixed.Point26_6{X: toFixed(p.X), Y: toFixed(p.Y)}
}

// addPath feeds world-space segments to a rasterx.Adder.
func addPath(a rasterx.Adder, path []engine.Segment) {
	open := false
	for _, seg := range path {
		switch seg.Op {
		case engine.OpMove:
			if open {
				a.Stop(false)
			}
			a.Start(toFixedPoint(seg.Pts[0]))
			open = true
		case engine.OpLine:
			a.Line(toFixedPoint(seg.Pts[0]))
		case engine.OpQuad:
			a.QuadBezier(toFixedPoint(seg.Pts[0]), toFixedPoint(seg.Pts[1]))
		case engine.OpCubic:
			a.CubeBezier(toFixedPoint(seg.Pts[0]), toFixedPoint(seg.Pts[1]), toFixedPoint(seg.Pts[2]))
		case engine.OpClose:
			a.Stop(true)
			open = false
		}
	}
	if open {
		a.Stop(false)
	}
}

func lineCap(v string) rasterx.CapFunc {
	switch v {
	case "round":
		return rasterx.RoundCap
	case "square":
		return rasterx.SquareCap
	default:
		return rasterx.ButtCap
	}
}

func lineJoin(v string) rasterx.JoinMode {
	switch v {
	case "round":
		return rasterx.Round
	case "bevel":
		return rasterx.Bevel
	default:
		return rasterx.Miter
	}
}
