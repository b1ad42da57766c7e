//go:build js && wasm

package main

import (
	"context"
	"errors"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/inamate/svgfit/internal/acquire"
	"github.com/inamate/svgfit/internal/engine"
	"github.com/inamate/svgfit/internal/svgparse"
)

var (
	eng    *engine.Engine
	canvas *engine.Canvas
	rec    *canvasPainter
	log    *zap.Logger
)

func main() {
	opts := readOptions(js.Global().Get("svgfitConfig"))
	log = newConsoleLogger(opts.debug)

	rec = newCanvasPainter(js.Global().Get("document").Call("getElementById", opts.canvasID))
	canvas = engine.NewCanvas(engine.Viewport{Width: opts.width, Height: opts.height}, rec)
	eng = engine.NewEngine(canvas, svgparse.New(svgparse.WithLogger(log.Named("parse"))).Parse,
		engine.WithLogger(log.Named("engine")),
		engine.WithAdditive(opts.additive),
		engine.WithReadLimit(opts.maxBytes))

	// Create the engine API object
	svgfitEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	svgfitEngine.Set("loadFile", js.FuncOf(loadFile))
	svgfitEngine.Set("clear", js.FuncOf(clearCanvas))

	// --- Queries (frontend ← engine) ---
	svgfitEngine.Set("render", js.FuncOf(render))
	svgfitEngine.Set("hitTest", js.FuncOf(hitTest))
	svgfitEngine.Set("getBounds", js.FuncOf(getBounds))
	svgfitEngine.Set("getFit", js.FuncOf(getFit))
	svgfitEngine.Set("getViewport", js.FuncOf(getViewport))

	// Register on global scope
	js.Global().Set("svgfitEngine", svgfitEngine)

	// Signal that WASM is ready
	js.Global().Set("svgfitWasmReady", js.ValueOf(true))
	log.Debug("Engine ready", zap.Float64("width", opts.width), zap.Float64("height", opts.height))

	// Keep Go runtime alive
	select {}
}

type options struct {
	canvasID      string
	width, height float64
	additive      bool
	debug         bool
	maxBytes      int64
}

// readOptions reads the optional global svgfitConfig object.
func readOptions(v js.Value) options {
	o := options{canvasID: "canvas", width: 1000, height: 900, maxBytes: acquire.DefaultLimit}
	if v.Type() != js.TypeObject {
		return o
	}
	if s := v.Get("canvas"); s.Type() == js.TypeString {
		o.canvasID = s.String()
	}
	if n := v.Get("width"); n.Type() == js.TypeNumber && n.Float() > 0 {
		o.width = n.Float()
	}
	if n := v.Get("height"); n.Type() == js.TypeNumber && n.Float() > 0 {
		o.height = n.Float()
	}
	if n := v.Get("maxBytes"); n.Type() == js.TypeNumber && n.Float() > 0 {
		o.maxBytes = int64(n.Float())
	}
	o.additive = v.Get("additive").Truthy()
	o.debug = v.Get("debug").Truthy()
	return o
}

// --- Command Handlers ---

// loadFile takes a File from an <input type="file"> change event and returns
// a Promise. It resolves with the load result, with {empty: true} when the
// file has nothing to draw, or with {stale: true} when a newer load won.
// A missing file resolves with {none: true} and changes nothing.
func loadFile(this js.Value, args []js.Value) interface{} {
	var file js.Value
	if len(args) > 0 {
		file = args[0]
	}

	return newPromise(func(resolve, reject js.Value) {
		src := fileSource(file)
		if src == nil {
			resolve.Invoke(js.ValueOf(map[string]interface{}{"none": true}))
			return
		}

		eng.LoadAsync(context.Background(), src, func(res engine.Result, err error) {
			switch {
			case err == nil:
				resolve.Invoke(js.Global().Get("JSON").Call("parse", toJSON(res)))
			case errors.Is(err, engine.ErrStaleLoad):
				resolve.Invoke(js.ValueOf(map[string]interface{}{"stale": true}))
			case errors.Is(err, engine.ErrNoShapes):
				resolve.Invoke(js.ValueOf(map[string]interface{}{"empty": true}))
			default:
				log.Warn("Load failed", zap.String("name", src.Name()), zap.Error(err))
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
			}
		})
	})
}

func clearCanvas(this js.Value, args []js.Value) interface{} {
	if err := eng.Clear(); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(rec.JSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	x := args[0].Float()
	y := args[1].Float()
	return js.ValueOf(eng.HitTest(x, y))
}

func getBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Bounds()))
}

func getFit(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(eng.Last()))
}

func getViewport(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(toJSON(canvas.Viewport()))
}
