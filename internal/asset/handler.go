// Package asset receives uploaded SVG files and answers with their fit.
package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/inamate/svgfit/internal/acquire"
	"github.com/inamate/svgfit/internal/engine"
	"github.com/inamate/svgfit/internal/middleware"
	"github.com/inamate/svgfit/internal/svgparse"
)

// FitResponse is returned from the fit endpoint.
type FitResponse struct {
	engine.Result
	Width    float64              `json:"width"`
	Height   float64              `json:"height"`
	Commands []engine.DrawCommand `json:"commands"`
}

// Options are the per-server settings every request engine is built with.
type Options struct {
	Width, Height float64
	MaxBytes      int64
}

// Handler serves the fit endpoint.
type Handler struct {
	opts Options
	log  *zap.Logger
}

// NewHandler creates a fit handler.
func NewHandler(opts Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = acquire.DefaultLimit
	}
	return &Handler{opts: opts, log: log}
}

// Fit handles POST /fit (multipart form with "file" field). Optional
// "width" and "height" query parameters override the canvas size.
func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("request", middleware.RequestIDFromContext(r.Context())))

	vp, err := ViewportFromQuery(r, h.opts.Width, h.opts.Height)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	src, err := Receive(w, r, h.opts.MaxBytes)
	if err != nil {
		WriteError(w, StatusFor(err), err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	rec := &engine.CommandRecorder{}
	canvas := engine.NewCanvas(vp, rec)
	eng := engine.NewEngine(canvas, svgparse.New(svgparse.WithLogger(log)).Parse,
		engine.WithLogger(log), engine.WithReadLimit(h.opts.MaxBytes))

	res, err := eng.Load(r.Context(), src)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("Fit failed", zap.String("name", src.Name()), zap.Error(err))
		}
		WriteError(w, status, err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, FitResponse{
		Result:   res,
		Width:    vp.Width,
		Height:   vp.Height,
		Commands: rec.Commands(),
	}); err != nil {
		log.Error("Failed to write fit response", zap.String("name", src.Name()), zap.Error(err))
	}
}

// Receive parses the multipart form and returns its "file" field.
// The body is capped at maxBytes plus form overhead.
func Receive(w http.ResponseWriter, r *http.Request, maxBytes int64) (acquire.Source, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w (max %d bytes)", acquire.ErrTooLarge, maxBytes)
		}
		return nil, fmt.Errorf("%w: %w", errBadForm, err)
	}

	_, header, err := r.FormFile("file")
	if err != nil {
		return nil, acquire.ErrNoFile
	}
	return acquire.Upload(header), nil
}

// StatusFor maps a load error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, acquire.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, engine.ErrNoShapes):
		return http.StatusUnprocessableEntity
	case errors.Is(err, acquire.ErrNoFile), errors.Is(err, acquire.ErrEncoding),
		errors.Is(err, svgparse.ErrMalformed), errors.Is(err, errBadForm):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadForm = errors.New("bad form")

// ViewportFromQuery reads optional width and height query parameters.
func ViewportFromQuery(r *http.Request, width, height float64) (engine.Viewport, error) {
	vp := engine.Viewport{Width: width, Height: height}
	for key, dst := range map[string]*float64{"width": &vp.Width, "height": &vp.Height} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 1 && f <= 8192) {
			return vp, fmt.Errorf("invalid %s %q", key, v)
		}
		*dst = f
	}
	return vp, nil
}

// WriteJSON writes v with the given status. If v cannot be encoded nothing
// of it is written, the response becomes a 500 and the error is returned.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(body, '\n'))
	return err
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	_ = WriteJSON(w, status, map[string]string{"error": msg})
}
