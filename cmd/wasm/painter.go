//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/inamate/svgfit/internal/engine"
)

// canvasPainter replays draw commands on an HTML canvas 2D context.
type canvasPainter struct {
	engine.CommandRecorder
	el  js.Value
	ctx js.Value
}

func newCanvasPainter(el js.Value) *canvasPainter {
	p := &canvasPainter{el: el}
	if el.Truthy() {
		p.ctx = el.Call("getContext", "2d")
	}
	return p
}

// Paint records the commands and draws them.
func (p *canvasPainter) Paint(shapes []*engine.Shape, vp engine.Viewport) error {
	if err := p.CommandRecorder.Paint(shapes, vp); err != nil {
		return err
	}
	if !p.ctx.Truthy() {
		return nil
	}
	for _, cmd := range p.Commands() {
		p.exec(cmd)
	}
	return nil
}

func (p *canvasPainter) exec(cmd engine.DrawCommand) {
	ctx := p.ctx
	switch cmd.Op {
	case "clear":
		if p.el.Get("width").Int() != int(cmd.Width) || p.el.Get("height").Int() != int(cmd.Height) {
			p.el.Set("width", int(cmd.Width))
			p.el.Set("height", int(cmd.Height))
		}
		ctx.Call("setTransform", 1, 0, 0, 1, 0, 0)
		ctx.Call("clearRect", 0, 0, cmd.Width, cmd.Height)

	case "path":
		t := cmd.Transform
		ctx.Call("save")
		ctx.Call("setTransform", t[0], t[1], t[2], t[3], t[4], t[5])
		ctx.Call("beginPath")
		for _, seg := range cmd.Path {
			pts := seg.Points()
			switch seg.Op {
			case engine.OpMove:
				ctx.Call("moveTo", pts[0].X, pts[0].Y)
			case engine.OpLine:
				ctx.Call("lineTo", pts[0].X, pts[0].Y)
			case engine.OpQuad:
				ctx.Call("quadraticCurveTo", pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
			case engine.OpCubic:
				ctx.Call("bezierCurveTo", pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
			case engine.OpClose:
				ctx.Call("closePath")
			}
		}
		if cmd.Fill != "" {
			ctx.Set("fillStyle", cmd.Fill)
			ctx.Call("fill", cmd.FillRule)
		}
		if cmd.Stroke != "" {
			ctx.Set("strokeStyle", cmd.Stroke)
			ctx.Set("lineWidth", cmd.StrokeWidth)
			ctx.Set("lineCap", cmd.LineCap)
			ctx.Set("lineJoin", cmd.LineJoin)
			ctx.Call("stroke")
		}
		ctx.Call("restore")
	}
}
