package svgparse

import (
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/inamate/svgfit/internal/engine"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	n := 0
	return New(
		WithLogger(zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))),
		WithIDs(func() string { n++; return fmt.Sprintf("s%d", n) }),
	)
}

func svg(body string) string {
	return `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="200" height="100">` + body + `</svg>`
}

func nrgba(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func assertBounds(t *testing.T, s *engine.Shape, x, y, w, h float64) {
	t.Helper()
	r := s.BoundingRect()
	assert.InDelta(t, x, r.X, 0.05, "x of %s", s.Kind)
	assert.InDelta(t, y, r.Y, 0.05, "y of %s", s.Kind)
	assert.InDelta(t, w, r.Width, 0.05, "width of %s", s.Kind)
	assert.InDelta(t, h, r.Height, 0.05, "height of %s", s.Kind)
}

func TestParseBasicShapes(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<rect x="10" y="20" width="30" height="40"/>
		<circle cx="50" cy="50" r="10"/>
		<ellipse cx="100" cy="50" rx="20" ry="5"/>
		<line x1="0" y1="0" x2="10" y2="30" stroke="black"/>
		<polyline points="0,0 10,10 20,0"/>
		<polygon points="5 5, 15 5, 10 15"/>
		<path d="M0 0 L10 0 L10 10 Z"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 7)

	kinds := make([]string, len(shapes))
	for i, s := range shapes {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []string{"rect", "circle", "ellipse", "line", "polyline", "polygon", "path"}, kinds)
	assert.Equal(t, "s1", shapes[0].ID)
	assert.Equal(t, "s7", shapes[6].ID)

	assertBounds(t, shapes[0], 10, 20, 30, 40)
	assertBounds(t, shapes[1], 40, 40, 20, 20)
	assertBounds(t, shapes[2], 80, 45, 40, 10)
	assertBounds(t, shapes[3], 0, 0, 10, 30)
	assertBounds(t, shapes[4], 0, 0, 20, 10)
	assertBounds(t, shapes[5], 5, 5, 10, 10)
	assertBounds(t, shapes[6], 0, 0, 10, 10)

	assert.Equal(t, engine.OpClose, shapes[5].Path[len(shapes[5].Path)-1].Op)
	assert.NotEqual(t, engine.OpClose, shapes[4].Path[len(shapes[4].Path)-1].Op)
}

func TestParseDrawsNothingForEmptyGeometry(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<rect width="0" height="10"/>
		<circle r="0"/>
		<ellipse rx="5"/>
		<polyline points="1 2"/>
		<path d=""/>`))
	require.NoError(t, err)
	assert.Empty(t, shapes)
}

func TestParseRoundedRect(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`<rect x="0" y="0" width="20" height="10" rx="50"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assertBounds(t, shapes[0], 0, 0, 20, 10)

	cubics := 0
	for _, seg := range shapes[0].Path {
		if seg.Op == engine.OpCubic {
			cubics++
		}
	}
	assert.Equal(t, 4, cubics)
}

func TestParseArcPath(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`<path d="M0 0 A5 5 0 0 1 10 0"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	// sweep flag 1 bends the arc upward in y-down coordinates
	assertBounds(t, shapes[0], 0, -5, 10, 5)
}

func TestParsePathMatchesRect(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<rect x="0.1" y="0.1" width="0.3" height="0.2"/>
		<path d="M0.1 0.1 H0.4 V0.3 H0.1 Z"/>
		<path d="m0.1,0.1 h0.3 v0.2 h-0.3 z"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 3)

	want := shapes[0].BoundingRect()
	for _, s := range shapes[1:] {
		got := s.BoundingRect()
		assert.InDelta(t, want.X, got.X, 1e-6)
		assert.InDelta(t, want.Y, got.Y, 1e-6)
		assert.InDelta(t, want.Width, got.Width, 1e-6)
		assert.InDelta(t, want.Height, got.Height, 1e-6)
	}
}

func TestParseNarrowPathIsNotDegenerate(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`<path d="M0.5 0 L0.507 1" stroke="black"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 1)

	r := shapes[0].BoundingRect()
	assert.InDelta(t, 0.5, r.X, 1e-6)
	assert.InDelta(t, 0.007, r.Width, 1e-6)
	assert.InDelta(t, 1, r.Height, 1e-6)

	fit, ok := engine.Fit(shapes, engine.Viewport{Width: 1000, Height: 900})
	require.True(t, ok)
	assert.False(t, fit.Degenerate)
	assert.InDelta(t, 900, fit.ScaleFactor, 1e-3)
}

func TestParseLargePathCoordinates(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`<path d="M-1000000 0 L40000000 30000000 L40000000 0 Z"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 1)

	r := shapes[0].BoundingRect()
	assert.InDelta(t, -1e6, r.X, 1)
	assert.InDelta(t, 0, r.Y, 1)
	assert.InDelta(t, 4.1e7, r.Width, 1)
	assert.InDelta(t, 3e7, r.Height, 1)
}

func TestParseCompactArcFlags(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<path d="M0 0 A5 5 0 0 1 10 0"/>
		<path d="M0,0A5,5,0,01,10,0"/>
		<path d="M0 0a5 5 0 0110 0"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 3)

	for _, s := range shapes {
		assertBounds(t, s, 0, -5, 10, 5)
	}
}

func TestParseBadPathDataIsSkipped(t *testing.T) {
	doc, err := newTestParser(t).ParseDocument(svg(`
		<path d="10 10 L20 20"/>
		<path d="M0 0 A5 5 0 2 1 10 0"/>
		<path d="M0 0 L1e999 0"/>
		<rect id="kept" width="5" height="5"/>`))
	require.NoError(t, err)
	require.Len(t, doc.Shapes, 1)
	assert.Equal(t, engine.KindRect, doc.Shapes[0].Kind)
	require.Len(t, doc.Warnings, 3)
	assert.Contains(t, doc.Warnings[0].Error(), "<path>")
}

func TestParseTransforms(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<g transform="translate(10,20)">
			<rect width="10" height="10" transform="scale(2)"/>
			<g transform="rotate(90)"><rect width="10" height="5"/></g>
		</g>`))
	require.NoError(t, err)
	require.Len(t, shapes, 2)

	assertBounds(t, shapes[0], 10, 20, 20, 20)
	assertBounds(t, shapes[1], 5, 20, 5, 10)
}

func TestParsePercentagesUseViewBox(t *testing.T) {
	doc, err := newTestParser(t).ParseDocument(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 400 100" width="10"><rect width="50%" height="50%"/></svg>`)
	require.NoError(t, err)
	assert.Equal(t, 400.0, doc.Width)
	assert.Equal(t, 100.0, doc.Height)
	require.Len(t, doc.Shapes, 1)
	assertBounds(t, doc.Shapes[0], 0, 0, 200, 50)
}

func TestParseStyleInheritance(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<g fill="red" opacity="0.5" stroke="blue" stroke-width="3">
			<rect width="1" height="1"/>
			<g opacity="0.5"><rect width="1" height="1" fill-opacity="0.25"/></g>
			<rect width="1" height="1" fill="none" stroke-linecap="round"/>
		</g>`))
	require.NoError(t, err)
	require.Len(t, shapes, 3)

	p := shapes[0].Paint
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, nrgba(p.Fill))
	assert.Equal(t, color.NRGBA{B: 0xff, A: 0xff}, nrgba(p.Stroke))
	assert.Equal(t, 3.0, p.StrokeWidth)
	assert.Equal(t, 0.5, p.Opacity)

	assert.Equal(t, 0.25, shapes[1].Paint.Opacity, "group opacities multiply")
	assert.Equal(t, 0.25, shapes[1].Paint.FillOpacity)

	assert.Nil(t, shapes[2].Paint.Fill)
	assert.Equal(t, "round", shapes[2].Paint.LineCap)
}

func TestParseStyleCascade(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<style>
			rect { fill: #ff0000 }
			.green, .other { fill: #00ff00 }
			#blue { fill: #0000ff }
		</style>
		<rect width="1" height="1"/>
		<rect class="green" width="1" height="1" fill="yellow"/>
		<rect id="blue" class="green" width="1" height="1"/>
		<rect id="blue2" class="green" width="1" height="1" style="fill: white; stroke-width: 2"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 4)

	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, nrgba(shapes[0].Paint.Fill), "type selector")
	assert.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, nrgba(shapes[1].Paint.Fill), "sheet beats attribute")
	assert.Equal(t, color.NRGBA{B: 0xff, A: 0xff}, nrgba(shapes[2].Paint.Fill), "id beats class")
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, nrgba(shapes[3].Paint.Fill), "inline beats sheet")
	assert.Equal(t, 2.0, shapes[3].Paint.StrokeWidth)
}

func TestParseColors(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<rect width="1" height="1" color="lime" fill="currentColor"/>
		<rect width="1" height="1" fill="rgba(255, 0, 0, 0.5)"/>
		<rect width="1" height="1" fill="url(#grad) #123456"/>
		<rect width="1" height="1" fill="url(#grad)"/>
		<rect width="1" height="1" fill="transparent"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 5)

	assert.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, nrgba(shapes[0].Paint.Fill))
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0x80}, nrgba(shapes[1].Paint.Fill))
	assert.Equal(t, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}, nrgba(shapes[2].Paint.Fill))
	assert.Equal(t, color.NRGBA{A: 0xff}, nrgba(shapes[3].Paint.Fill), "gradients without a fallback paint black")
	assert.Nil(t, shapes[4].Paint.Fill)
}

func TestParseHiddenAndSkipped(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<defs><rect id="r" width="1" height="1"/></defs>
		<rect width="1" height="1" display="none"/>
		<g style="display:none"><rect width="1" height="1"/></g>
		<rect width="1" height="1" visibility="hidden"/>
		<title>drawing</title>
		<rect id="kept" width="5" height="5"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assertBounds(t, shapes[0], 0, 0, 5, 5)
}

func TestParseUse(t *testing.T) {
	shapes, err := newTestParser(t).Parse(svg(`
		<defs>
			<rect id="r" width="10" height="10"/>
			<symbol id="sym"><circle cx="5" cy="5" r="5"/><rect width="2" height="2"/></symbol>
		</defs>
		<use href="#r" x="5" y="5" fill="red"/>
		<use xlink:href="#sym" transform="translate(100,0)"/>
		<use href="#missing"/>`))
	require.NoError(t, err)
	require.Len(t, shapes, 3)

	assertBounds(t, shapes[0], 5, 5, 10, 10)
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, nrgba(shapes[0].Paint.Fill), "use passes its style down")
	assertBounds(t, shapes[1], 100, 0, 10, 10)
	assertBounds(t, shapes[2], 100, 0, 2, 2)
}

func TestParseUseCycle(t *testing.T) {
	doc, err := newTestParser(t).ParseDocument(svg(`
		<g id="a"><use href="#b"/></g>
		<g id="b"><use href="#a"/></g>`))
	require.NoError(t, err)
	assert.Empty(t, doc.Shapes)
	assert.NotEmpty(t, doc.Warnings)
}

func TestParseWarnings(t *testing.T) {
	doc, err := newTestParser(t).ParseDocument(svg(`
		<text>hello</text>
		<rect width="1" height="1" fill="#12"/>
		<rect width="1" height="1" transform="wobble(3)"/>`))
	require.NoError(t, err)
	assert.Len(t, doc.Shapes, 2, "bad paint and bad transforms still draw")
	require.Len(t, doc.Warnings, 3)
	assert.Contains(t, doc.Warnings[0].Error(), "<text>")
}

func TestParseIgnoresForeignNamespaces(t *testing.T) {
	shapes, err := newTestParser(t).Parse(`<svg xmlns="http://www.w3.org/2000/svg"
		xmlns:sodipodi="http://sodipodi.sourceforge.net/DTD/sodipodi-0.dtd">
		<sodipodi:namedview pagecolor="#ffffff"/>
		<rect width="1" height="1"/>
	</svg>`)
	require.NoError(t, err)
	assert.Len(t, shapes, 1)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not xml", "this is not svg <"},
		{"empty", ""},
		{"wrong root", `<html><body/></html>`},
		{"unclosed", `<svg><rect></svg>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(t).Parse(tt.text)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseLatin1Prolog(t *testing.T) {
	text := `<?xml version="1.0" encoding="ISO-8859-1"?>` + svg(`<rect width="1" height="1"/>`)
	shapes, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.True(t, strings.HasPrefix(shapes[0].ID, "shape_"), shapes[0].ID)
}
