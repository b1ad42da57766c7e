package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"

	"github.com/inamate/svgfit/internal/engine"
)

// Renderer names accepted by New.
const (
	RendererRasterx = "rasterx"
	RendererGG      = "gg"
)

// ImagePainter is a Painter whose last output is an image.
type ImagePainter interface {
	engine.Painter
	Image() *image.RGBA
}

// New returns the painter registered under name.
func New(name string, bg color.Color) (ImagePainter, error) {
	switch strings.ToLower(name) {
	case "", RendererRasterx:
		return NewRaster(bg), nil
	case RendererGG:
		return NewGG(bg), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}

// Format is an output image encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// ParseFormat accepts png, jpeg and jpg, case-insensitively. Empty is PNG.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", v)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Ext returns the file extension of f, with the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return ".png"
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format, jpegQuality int) error {
	if img == nil {
		return errors.New("nothing rendered")
	}
	if f == JPEG {
		if jpegQuality <= 0 {
			jpegQuality = 90
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// ParseColor parses a background color: any SVG color value, or transparent.
func ParseColor(v string) (color.Color, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return color.White, nil
	case "transparent", "none":
		return color.Transparent, nil
	}
	if v = strings.TrimSpace(v); strings.HasPrefix(v, "#") && len(v) != 4 && len(v) != 7 {
		return nil, fmt.Errorf("bad color %q", v)
	}
	c, err := oksvg.ParseSVGColor(v)
	if err != nil {
		return nil, fmt.Errorf("bad color %q: %w", v, err)
	}
	return c, nil
}
