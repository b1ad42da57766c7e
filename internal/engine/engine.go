package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/inamate/svgfit/internal/acquire"
	"github.com/inamate/svgfit/internal/typeid"
)

var (
	// ErrNoShapes is returned when a file parsed to nothing drawable. No fit
	// and no render happen.
	ErrNoShapes = errors.New("no shapes in document")
	// ErrStaleLoad is returned when a newer load superseded this one.
	ErrStaleLoad = errors.New("load superseded by a newer one")
)

// ParseFunc turns SVG text into shapes in document order.
type ParseFunc func(text string) ([]*Shape, error)

// Token identifies one load generation.
type Token uint64

// Result describes a completed load.
type Result struct {
	LoadID string        `json:"loadId"`
	Name   string        `json:"name,omitempty"`
	Shapes int           `json:"shapes"`
	Fit    FitParameters `json:"fit"`
	Source BoundingBox   `json:"source"`
	Bounds Rect          `json:"bounds"`
}

// Engine runs the load pipeline: read, parse, fit, hand to the surface, render.
// It is safe for concurrent use; only the newest load is applied.
type Engine struct {
	mu       sync.Mutex
	surface  Surface
	parse    ParseFunc
	log      *zap.Logger
	limit    int64
	additive bool

	generation Token
	last       Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithAdditive keeps shapes from earlier loads on the surface instead of
// clearing it at the start of every load.
func WithAdditive(additive bool) Option {
	return func(e *Engine) { e.additive = additive }
}

// WithReadLimit caps the size of a file read by Load.
func WithReadLimit(limit int64) Option {
	return func(e *Engine) { e.limit = limit }
}

// NewEngine creates an engine drawing onto surface with shapes from parse.
func NewEngine(surface Surface, parse ParseFunc, opts ...Option) *Engine {
	e := &Engine{
		surface: surface,
		parse:   parse,
		log:     zap.NewNop(),
		limit:   acquire.DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Commands ---

// BeginLoad starts a new load generation; completions for older tokens are dropped.
func (e *Engine) BeginLoad() Token {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	return e.generation
}

// Complete applies the text read for token: parse, clear (unless additive),
// fit, add in parse order, render once.
func (e *Engine) Complete(token Token, name, text string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.generation {
		e.log.Debug("Dropping stale load", zap.String("name", name), zap.Uint64("token", uint64(token)), zap.Uint64("current", uint64(e.generation)))
		return Result{}, ErrStaleLoad
	}

	shapes, err := e.parse(text)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(shapes) == 0 {
		e.log.Info("Nothing to draw", zap.String("name", name))
		return Result{}, ErrNoShapes
	}

	for _, s := range shapes {
		s.SetCoords()
	}
	source, _ := Measure(shapes)

	if !e.additive {
		e.surface.Clear()
	}

	vp := e.surface.Viewport()
	fit, _ := Fit(shapes, vp)
	if fit.Degenerate {
		e.log.Warn("Degenerate bounding box, drawing at natural size",
			zap.String("name", name), zap.Float64("width", source.Width()), zap.Float64("height", source.Height()))
	}

	e.surface.Add(shapes...)
	if err := e.surface.RenderAll(); err != nil {
		return Result{}, fmt.Errorf("render %s: %w", name, err)
	}

	fitted, _ := Measure(shapes)
	res := Result{
		LoadID: typeid.NewLoadID(),
		Name:   name,
		Shapes: len(shapes),
		Fit:    fit,
		Source: source,
		Bounds: fitted.Rect(),
	}
	e.last = res

	e.log.Debug("Load complete",
		zap.String("id", res.LoadID),
		zap.String("name", name),
		zap.Int("shapes", res.Shapes),
		zap.Float64("scale", fit.ScaleFactor),
		zap.Float64("offsetX", fit.OffsetX),
		zap.Float64("offsetY", fit.OffsetY))
	return res, nil
}

// Load reads src asynchronously and completes it. A nil src is ErrNoFile.
func (e *Engine) Load(ctx context.Context, src acquire.Source) (Result, error) {
	if src == nil {
		return Result{}, acquire.ErrNoFile
	}

	token := e.BeginLoad()
	done := make(chan acquire.Result, 1)
	acquire.Async(ctx, src, e.readLimit(), func(r acquire.Result) { done <- r })

	select {
	case r := <-done:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return e.Complete(token, r.Name, r.Text)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// LoadAsync starts a load and returns immediately. done is called exactly
// once, from another goroutine, unless src is nil.
func (e *Engine) LoadAsync(ctx context.Context, src acquire.Source, done func(Result, error)) Token {
	if src == nil {
		return 0
	}

	token := e.BeginLoad()
	acquire.Async(ctx, src, e.readLimit(), func(r acquire.Result) {
		if r.Err != nil {
			done(Result{}, r.Err)
			return
		}
		done(e.Complete(token, r.Name, r.Text))
	})
	return token
}

// Clear empties the surface and repaints it.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.surface.Clear()
	e.last = Result{}
	return e.surface.RenderAll()
}

// --- Queries ---

// Last returns the result of the most recent completed load.
func (e *Engine) Last() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// HitTest returns the ID of the topmost shape on the surface under (x, y).
func (e *Engine) HitTest(x, y float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface.HitTest(x, y)
}

// Bounds returns the union of the shapes currently on the surface.
func (e *Engine) Bounds() Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface.Bounds()
}

// Generation returns the newest load token handed out.
func (e *Engine) Generation() Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func (e *Engine) readLimit() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.limit
}
