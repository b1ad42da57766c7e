package engine

// Surface is the retained drawing context shapes are handed to after fitting.
type Surface interface {
	// Add appends shapes in paint order (later shapes draw on top).
	Add(shapes ...*Shape)
	// Clear drops all retained shapes.
	Clear()
	// RenderAll repaints synchronously from the retained state.
	RenderAll() error
	// Viewport returns the fixed drawing area.
	Viewport() Viewport
	// HitTest returns the ID of the topmost shape under (x, y), or "".
	HitTest(x, y float64) string
	// Bounds returns the union of the retained shapes' bounding rectangles.
	Bounds() Rect
}

// Painter draws an ordered list of shapes onto some target.
type Painter interface {
	Paint(shapes []*Shape, vp Viewport) error
}

// Canvas is the retained Surface implementation. It owns the shapes added to
// it and paints them through a Painter on RenderAll.
type Canvas struct {
	viewport Viewport
	painter  Painter
	shapes   []*Shape
	renders  int
}

var _ Surface = (*Canvas)(nil)

// NewCanvas creates an empty canvas. A nil painter makes RenderAll only count.
func NewCanvas(vp Viewport, painter Painter) *Canvas {
	return &Canvas{viewport: vp, painter: painter}
}

// Add appends shapes in the given order.
func (c *Canvas) Add(shapes ...*Shape) {
	for _, s := range shapes {
		if s != nil {
			c.shapes = append(c.shapes, s)
		}
	}
}

// Clear drops all retained shapes.
func (c *Canvas) Clear() {
	c.shapes = nil
}

// RenderAll paints the retained shapes.
func (c *Canvas) RenderAll() error {
	c.renders++
	if c.painter == nil {
		return nil
	}
	return c.painter.Paint(c.shapes, c.viewport)
}

// Viewport returns the canvas size.
func (c *Canvas) Viewport() Viewport {
	return c.viewport
}

// Shapes returns the retained shapes in paint order.
func (c *Canvas) Shapes() []*Shape {
	out := make([]*Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}

// Len returns the number of retained shapes.
func (c *Canvas) Len() int {
	return len(c.shapes)
}

// Renders returns how many times RenderAll ran.
func (c *Canvas) Renders() int {
	return c.renders
}

// Bounds returns the union of all retained shapes' bounding rectangles.
func (c *Canvas) Bounds() Rect {
	bbox, ok := Measure(c.shapes)
	if !ok {
		return Rect{}
	}
	return bbox.Rect()
}

// HitTest returns the ID of the topmost shape under (x, y), or an empty
// string. The point is mapped back into each shape's own coordinates and
// tested against its untransformed path bounds, so a rotated shape does not
// claim the corners of its world box.
func (c *Canvas) HitTest(x, y float64) string {
	for i := len(c.shapes) - 1; i >= 0; i-- {
		s := c.shapes[i]
		if !s.BoundingRect().Contains(x, y) {
			continue
		}
		m := s.Matrix()
		if m.Determinant() == 0 {
			return s.ID
		}
		lx, ly := m.Invert().TransformPoint(x, y)
		if PathBounds(s.Path, Identity()).Contains(lx, ly) {
			return s.ID
		}
	}
	return ""
}
