package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/gg"

	"github.com/inamate/svgfit/internal/engine"
)

// GG paints shapes with the gogpu/gg software context.
type GG struct {
	Background color.Color

	img *image.RGBA
}

var _ engine.Painter = (*GG)(nil)

// NewGG returns a GG painter over the given background (white when nil).
func NewGG(bg color.Color) *GG {
	if bg == nil {
		bg = color.White
	}
	return &GG{Background: bg}
}

// Paint draws shapes in order onto a fresh context.
func (p *GG) Paint(shapes []*engine.Shape, vp engine.Viewport) (err error) {
	w, h := pixelSize(vp)
	dc := gg.NewContext(w, h)
	defer func() {
		err = errors.Join(err, dc.Close())
	}()

	dc.ClearWithColor(gg.FromColor(p.Background))

	for _, s := range shapes {
		path := s.WorldPath()

		if fill := s.Paint.FillColor(); fill != nil {
			tracePath(dc, path)
			dc.SetColor(fill)
			dc.SetFillRule(gg.FillRuleNonZero)
			if s.Paint.EvenOdd {
				dc.SetFillRule(gg.FillRuleEvenOdd)
			}
			if err := dc.Fill(); err != nil {
				return fmt.Errorf("fill %s: %w", s.ID, err)
			}
		}

		if stroke := s.Paint.StrokeColor(); stroke != nil {
			width := s.WorldStrokeWidth()
			if width <= 0 {
				continue
			}
			tracePath(dc, path)
			dc.SetColor(stroke)
			dc.SetLineWidth(width)
			dc.SetLineCap(ggLineCap(s.Paint.LineCap))
			dc.SetLineJoin(ggLineJoin(s.Paint.LineJoin))
			if err := dc.Stroke(); err != nil {
				return fmt.Errorf("stroke %s: %w", s.ID, err)
			}
		}
	}

	src := dc.Image()
	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	p.img = img
	return nil
}

// Image returns the last painted image, or nil before the first Paint.
func (p *GG) Image() *image.RGBA {
	return p.img
}

func tracePath(dc *gg.Context, path []engine.Segment) {
	dc.ClearPath()
	for _, seg := range path {
		switch seg.Op {
		case engine.OpMove:
			dc.MoveTo(seg.Pts[0].X, seg.Pts[0].Y)
		case engine.OpLine:
			dc.LineTo(seg.Pts[0].X, seg.Pts[0].Y)
		case engine.OpQuad:
			dc.QuadraticTo(seg.Pts[0].X, seg.Pts[0].Y, seg.Pts[1].X, seg.Pts[1].Y)
		case engine.OpCubic:
			dc.CubicTo(seg.Pts[0].X, seg.Pts[0].Y, seg.Pts[1].X, seg.Pts[1].Y, seg.Pts[2].X, seg.Pts[2].Y)
		case engine.OpClose:
			dc.ClosePath()
		}
	}
}

func ggLineCap(v string) gg.LineCap {
	switch v {
	case "round":
		return gg.LineCapRound
	case "square":
		return gg.LineCapSquare
	default:
		return gg.LineCapButt
	}
}

func ggLineJoin(v string) gg.LineJoin {
	switch v {
	case "round":
		return gg.LineJoinRound
	case "bevel":
		return gg.LineJoinBevel
	default:
		return gg.LineJoinMiter
	}
}
