// Package export renders uploaded SVG files, fitted to the canvas, as images.
package export

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/inamate/svgfit/internal/asset"
	"github.com/inamate/svgfit/internal/engine"
	"github.com/inamate/svgfit/internal/middleware"
	"github.com/inamate/svgfit/internal/render"
	"github.com/inamate/svgfit/internal/svgparse"
	"github.com/inamate/svgfit/internal/typeid"
)

// Options configure the render endpoint.
type Options struct {
	asset.Options
	Renderer    string
	Background  color.Color
	JPEGQuality int
}

type Handler struct {
	opts Options
	log  *zap.Logger
}

func NewHandler(opts Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{opts: opts, log: log}
}

// Render handles POST /render?format=png|jpeg (multipart form with "file"
// field) and answers with the fitted image.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("request", middleware.RequestIDFromContext(r.Context())))

	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		asset.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	vp, err := asset.ViewportFromQuery(r, h.opts.Width, h.opts.Height)
	if err != nil {
		asset.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	painter, err := render.New(h.opts.Renderer, h.opts.Background)
	if err != nil {
		log.Error("Bad renderer", zap.Error(err))
		asset.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	src, err := asset.Receive(w, r, h.opts.MaxBytes)
	if err != nil {
		asset.WriteError(w, asset.StatusFor(err), err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	eng := engine.NewEngine(engine.NewCanvas(vp, painter), svgparse.New(svgparse.WithLogger(log)).Parse,
		engine.WithLogger(log), engine.WithReadLimit(h.opts.MaxBytes))

	res, err := eng.Load(r.Context(), src)
	if err != nil {
		status := asset.StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("Render failed", zap.String("name", src.Name()), zap.Error(err))
		}
		asset.WriteError(w, status, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := render.Encode(&buf, painter.Image(), format, h.opts.JPEGQuality); err != nil {
		log.Error("Encode image", zap.Error(err))
		asset.WriteError(w, http.StatusInternalServerError, "failed to encode image")
		return
	}

	log.Info("Render complete",
		zap.String("id", res.LoadID),
		zap.String("name", res.Name),
		zap.Int("shapes", res.Shapes),
		zap.String("format", string(format)),
		zap.Int("size", buf.Len()))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, FileName(res.Name, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// FileName derives a safe download name from the uploaded file name.
func FileName(name string, format render.Format) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	s := slug.Make(base)
	if s == "" {
		s = typeid.NewRenderID()
	}
	return s + format.Ext()
}
