package engine

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"sync"
)

// DrawCommand represents a single drawing operation for the browser to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string    `json:"op"`                    // Operation: "clear", "path"
	ShapeID     string    `json:"shapeId,omitempty"`     // For hit correlation
	Transform   []float64 `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []Segment `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string    `json:"fill,omitempty"`        // Fill color
	FillRule    string    `json:"fillRule,omitempty"`    // "nonzero" or "evenodd"
	Stroke      string    `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64   `json:"strokeWidth,omitempty"` // Stroke width in local units
	LineCap     string    `json:"lineCap,omitempty"`
	LineJoin    string    `json:"lineJoin,omitempty"`
	Width       float64   `json:"width,omitempty"`  // Surface width for "clear"
	Height      float64   `json:"height,omitempty"` // Surface height for "clear"
}

// CompileDrawCommands generates a draw command buffer for shapes.
// Commands are in painter's order (back to front), led by a "clear".
func CompileDrawCommands(shapes []*Shape, vp Viewport) []DrawCommand {
	commands := make([]DrawCommand, 0, len(shapes)+1)
	commands = append(commands, DrawCommand{Op: "clear", Width: vp.Width, Height: vp.Height})

	for _, s := range shapes {
		if s == nil || len(s.Path) == 0 {
			continue
		}
		fill := CSSColor(s.Paint.FillColor())
		stroke := CSSColor(s.Paint.StrokeColor())
		if fill == "" && stroke == "" {
			continue
		}

		cmd := DrawCommand{
			Op:        "path",
			ShapeID:   s.ID,
			Transform: s.Matrix().ToSlice(),
			Path:      s.Path,
			Fill:      fill,
			Stroke:    stroke,
		}
		if fill != "" {
			cmd.FillRule = "nonzero"
			if s.Paint.EvenOdd {
				cmd.FillRule = "evenodd"
			}
		}
		if stroke != "" {
			cmd.StrokeWidth = s.Paint.StrokeWidth
			cmd.LineCap = s.Paint.LineCap
			cmd.LineJoin = s.Paint.LineJoin
		}
		commands = append(commands, cmd)
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// CSSColor formats c as a CSS rgba() string; nil gives "".
func CSSColor(c color.Color) string {
	if c == nil {
		return ""
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return "rgba(" + strconv.Itoa(int(n.R)) + "," + strconv.Itoa(int(n.G)) + "," +
		strconv.Itoa(int(n.B)) + "," + strconv.FormatFloat(float64(n.A)/255, 'f', 3, 64) + ")"
}

// CommandRecorder is a Painter that records Canvas2D draw commands instead of
// rasterizing. The browser build replays them onto an HTML canvas.
type CommandRecorder struct {
	mu       sync.Mutex
	commands []DrawCommand
}

// Paint records the commands for shapes, replacing the previous recording.
func (r *CommandRecorder) Paint(shapes []*Shape, vp Viewport) error {
	commands := CompileDrawCommands(shapes, vp)
	r.mu.Lock()
	r.commands = commands
	r.mu.Unlock()
	return nil
}

// Commands returns the last recording.
func (r *CommandRecorder) Commands() []DrawCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands
}

// JSON returns the last recording serialized, "[]" before the first paint.
func (r *CommandRecorder) JSON() string {
	commands := r.Commands()
	if commands == nil {
		return "[]"
	}
	out, _ := DrawCommandsToJSON(commands)
	return out
}
