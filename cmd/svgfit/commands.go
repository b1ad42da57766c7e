package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/disintegration/imaging"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"github.com/inamate/svgfit/internal/acquire"
	"github.com/inamate/svgfit/internal/config"
	"github.com/inamate/svgfit/internal/engine"
	"github.com/inamate/svgfit/internal/export"
	"github.com/inamate/svgfit/internal/render"
	"github.com/inamate/svgfit/internal/svgparse"
)

// fitOutput is what the fit command prints.
type fitOutput struct {
	Width    float64              `json:"width"`
	Height   float64              `json:"height"`
	Loads    []engine.Result      `json:"loads"`
	Commands []engine.DrawCommand `json:"commands"`
}

func viewport(cmd *cli.Command, cfg *config.Config) engine.Viewport {
	vp := engine.Viewport{Width: float64(cfg.CanvasWidth), Height: float64(cfg.CanvasHeight)}
	if w := cmd.Int("width"); w > 0 {
		vp.Width = float64(w)
	}
	if h := cmd.Int("height"); h > 0 {
		vp.Height = float64(h)
	}
	return vp
}

// loadAll loads files in order onto eng. Files without shapes and files that
// cannot be read leave the canvas as it was; their errors are combined.
func loadAll(ctx context.Context, e *env, eng *engine.Engine, files []string) ([]engine.Result, error) {
	var (
		results []engine.Result
		err     error
	)
	for _, f := range files {
		res, er := eng.Load(ctx, acquire.File(f))
		switch {
		case er == nil:
			e.Log.Info("Fitted", zap.String("file", f), zap.Int("shapes", res.Shapes),
				zap.Float64("scale", res.Fit.ScaleFactor))
			results = append(results, res)
		case errors.Is(er, acquire.ErrNoFile):
		case errors.Is(er, engine.ErrNoShapes):
			e.Log.Warn("Nothing to draw, skipping", zap.String("file", f))
		default:
			err = multierr.Append(err, fmt.Errorf("%s: %w", f, er))
		}
	}
	return results, err
}

func newEngine(cmd *cli.Command, e *env, surface engine.Surface) *engine.Engine {
	return engine.NewEngine(surface, svgparse.New(svgparse.WithLogger(e.Log.Named("parse"))).Parse,
		engine.WithLogger(e.Log.Named("engine")),
		engine.WithAdditive(cmd.Bool("additive") || e.Cfg.Additive),
		engine.WithReadLimit(e.Cfg.MaxUploadBytes))
}

func runFit(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	files := cmd.Args().Slice()
	if len(files) == 0 {
		e.Log.Info("No input file, nothing to do")
		return nil
	}

	vp := viewport(cmd, e.Cfg)
	rec := &engine.CommandRecorder{}
	results, err := loadAll(ctx, e, newEngine(cmd, e, engine.NewCanvas(vp, rec)), files)
	if err != nil {
		return err
	}

	out := fitOutput{Width: vp.Width, Height: vp.Height, Loads: results, Commands: rec.Commands()}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode result: %w", err)
	}
	data = append(data, '\n')
	return writeOutput(cmd, cmd.String("output"), data)
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	files := cmd.Args().Slice()
	if len(files) == 0 {
		e.Log.Info("No input file, nothing to do")
		return nil
	}

	renderer := e.Cfg.Renderer
	if cmd.IsSet("renderer") {
		renderer = cmd.String("renderer")
	}
	background := e.Cfg.Background
	if cmd.IsSet("background") {
		background = cmd.String("background")
	}
	bg, err := render.ParseColor(background)
	if err != nil {
		return err
	}
	painter, err := render.New(renderer, bg)
	if err != nil {
		return err
	}

	canvas := engine.NewCanvas(viewport(cmd, e.Cfg), painter)
	results, err := loadAll(ctx, e, newEngine(cmd, e, canvas), files)
	if err != nil {
		return err
	}
	if len(results) == 0 || painter.Image() == nil {
		return errors.New("nothing to render")
	}

	dst := cmd.String("output")
	if dst == "" {
		dst = export.FileName(results[len(results)-1].Name, render.PNG)
	}
	if err := imaging.Save(painter.Image(), dst, imaging.JPEGQuality(e.Cfg.JPEGQuality)); err != nil {
		return fmt.Errorf("unable to save image: %w", err)
	}
	e.Log.Info("Rendered", zap.String("destination", dst), zap.Int("shapes", canvas.Len()), zap.String("renderer", renderer))
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	data, err := yaml.Marshal(e.Cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}
	return writeOutput(cmd, cmd.Args().Get(0), data)
}

// writeOutput writes data to the named file, or to the command writer when
// name is empty.
func writeOutput(cmd *cli.Command, name string, data []byte) error {
	var out io.Writer = os.Stdout
	if w := cmd.Root().Writer; w != nil {
		out = w
	}
	if name != "" {
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", name, err)
		}
		defer f.Close()
		out = f
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}
