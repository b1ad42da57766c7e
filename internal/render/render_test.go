package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/svgfit/internal/engine"
)

func square(id string, x, y, size float64, fill color.Color) *engine.Shape {
	path := []engine.Segment{
		engine.MoveTo(x, y),
		engine.LineTo(x+size, y),
		engine.LineTo(x+size, y+size),
		engine.LineTo(x, y+size),
		engine.Close(),
	}
	paint := engine.DefaultPaint()
	paint.Fill = fill
	return engine.NewShape(id, engine.KindRect, path, engine.Identity(), paint)
}

func assertRGB(t *testing.T, img image.Image, x, y int, want color.NRGBA) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	assert.InDelta(t, want.R, got.R, 8, "R at %d,%d", x, y)
	assert.InDelta(t, want.G, got.G, 8, "G at %d,%d", x, y)
	assert.InDelta(t, want.B, got.B, 8, "B at %d,%d", x, y)
}

var (
	red   = color.NRGBA{R: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func TestPainters(t *testing.T) {
	for _, name := range []string{RendererRasterx, RendererGG} {
		t.Run(name, func(t *testing.T) {
			p, err := New(name, nil)
			require.NoError(t, err)
			assert.Nil(t, p.Image())

			shapes := []*engine.Shape{
				square("a", 10, 10, 40, red),
				square("b", 30, 30, 40, blue),
			}
			require.NoError(t, p.Paint(shapes, engine.Viewport{Width: 100, Height: 80}))

			img := p.Image()
			require.NotNil(t, img)
			assert.Equal(t, image.Rect(0, 0, 100, 80), img.Bounds())

			assertRGB(t, img, 2, 2, white)
			assertRGB(t, img, 15, 15, red)
			// later shapes paint over earlier ones
			assertRGB(t, img, 40, 40, blue)
			assertRGB(t, img, 65, 65, blue)
			assertRGB(t, img, 90, 75, white)
		})
	}
}

func TestPaintStroke(t *testing.T) {
	for _, name := range []string{RendererRasterx, RendererGG} {
		t.Run(name, func(t *testing.T) {
			p, err := New(name, color.White)
			require.NoError(t, err)

			s := square("s", 20, 20, 60, nil)
			s.Paint.Stroke = red
			s.Paint.StrokeWidth = 6
			require.NoError(t, p.Paint([]*engine.Shape{s}, engine.Viewport{Width: 100, Height: 100}))

			img := p.Image()
			assertRGB(t, img, 20, 50, red)
			assertRGB(t, img, 50, 50, white)
		})
	}
}

func TestPaintReplacesPreviousImage(t *testing.T) {
	p := NewRaster(color.White)
	require.NoError(t, p.Paint([]*engine.Shape{square("a", 0, 0, 10, red)}, engine.Viewport{Width: 10, Height: 10}))
	assertRGB(t, p.Image(), 5, 5, red)

	require.NoError(t, p.Paint(nil, engine.Viewport{Width: 10, Height: 10}))
	assertRGB(t, p.Image(), 5, 5, white)
}

func TestPixelSize(t *testing.T) {
	w, h := pixelSize(engine.Viewport{Width: 1000, Height: 900})
	assert.Equal(t, 1000, w)
	assert.Equal(t, 900, h)

	w, h = pixelSize(engine.Viewport{Width: 0.2, Height: 0})
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	w, h = pixelSize(engine.Viewport{Width: 4 * maxRasterDim, Height: maxRasterDim})
	assert.Equal(t, maxRasterDim, w)
	assert.Equal(t, maxRasterDim/4, h)
}

func TestNewUnknownRenderer(t *testing.T) {
	_, err := New("cairo", nil)
	assert.ErrorContains(t, err, "cairo")
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, PNG, 0))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)

	buf.Reset()
	require.NoError(t, Encode(&buf, img, JPEG, 80))
	cfg, err = jpeg.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Height)

	assert.Error(t, Encode(&buf, nil, PNG, 0))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", PNG, true},
		{"PNG", PNG, true},
		{"jpg", JPEG, true},
		{"jpeg", JPEG, true},
		{"gif", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "image/jpeg", JPEG.ContentType())
	assert.Equal(t, ".png", PNG.Ext())
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0000")
	require.NoError(t, err)
	assert.Equal(t, red, color.NRGBAModel.Convert(c))

	c, err = ParseColor("")
	require.NoError(t, err)
	assert.Equal(t, color.White, c)

	c, err = ParseColor("transparent")
	require.NoError(t, err)
	_, _, _, a := c.RGBA()
	assert.Zero(t, a)

	_, err = ParseColor("#zz0000")
	assert.Error(t, err)
}
