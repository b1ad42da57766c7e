package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/inamate/svgfit/internal/asset"
	"github.com/inamate/svgfit/internal/config"
	"github.com/inamate/svgfit/internal/export"
	mw "github.com/inamate/svgfit/internal/middleware"
	"github.com/inamate/svgfit/internal/render"
)

func main() {
	cfg, err := config.LoadFile(os.Getenv("SVGFIT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := config.NewLogger(cfg.LogLevel, "svgfit-server")
	defer log.Sync()

	bg, err := render.ParseColor(cfg.Background)
	if err != nil {
		log.Error("Bad background color", zap.Error(err))
		os.Exit(1)
	}

	r := newRouter(cfg, bg, log)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Shutdown", zap.Error(err))
		}
	}()

	log.Info("Server starting", zap.String("addr", addr), zap.String("web", cfg.WebDir),
		zap.Int("width", cfg.CanvasWidth), zap.Int("height", cfg.CanvasHeight))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}

func newRouter(cfg *config.Config, bg color.Color, log *zap.Logger) *mux.Router {
	opts := asset.Options{
		Width:    float64(cfg.CanvasWidth),
		Height:   float64(cfg.CanvasHeight),
		MaxBytes: cfg.MaxUploadBytes,
	}
	fitHandler := asset.NewHandler(opts, log.Named("fit"))
	renderHandler := export.NewHandler(export.Options{
		Options:     opts,
		Renderer:    cfg.Renderer,
		Background:  bg,
		JPEGQuality: cfg.JPEGQuality,
	}, log.Named("render"))

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(log))
	r.Use(mw.Logger(log.Named("http")))
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/fit", fitHandler.Fit).Methods("POST", "OPTIONS")
	r.HandleFunc("/render", renderHandler.Render).Methods("POST", "OPTIONS")

	// Page, wasm bundle and wasm_exec.js
	r.PathPrefix("/").Handler(static(cfg.WebDir)).Methods("GET", "HEAD")

	return r
}

func static(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	})
}
