package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/inamate/svgfit/internal/config"
	"github.com/inamate/svgfit/internal/render"
)

const appName = "svgfit"

type envKey struct{}

// env keeps everything the commands need in a single place.
type env struct {
	Cfg *config.Config
	Log *zap.Logger

	start time.Time
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	// this should never happen
	panic("env not found in context")
}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &env{start: time.Now(), Log: zap.NewNop()})
}

// initializeAppContext runs after the command line is parsed and before any
// command.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	e := envFromContext(ctx)

	var err error
	configFile := cmd.String("config")
	if e.Cfg, err = config.LoadFile(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	level := e.Cfg.LogLevel
	if cmd.Bool("debug") {
		level = "debug"
	}
	e.Log = config.NewLogger(level, appName)

	e.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	if configFile == "" {
		e.Log.Debug("Using defaults and environment (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	e.Log.Debug("Program ended", zap.Duration("elapsed", time.Since(e.start)), zap.Strings("parsed args", cmd.Args().Slice()))
	// stdout and stderr cannot always be synced
	_ = e.Log.Sync()
	return nil
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.Cfg != nil {
		e.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func newApp() *cli.Command {
	sizeFlags := []cli.Flag{
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: "canvas width in pixels (default from configuration)"},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: "canvas height in pixels (default from configuration)"},
		&cli.BoolFlag{Name: "additive", Aliases: []string{"a"}, Usage: "keep shapes of earlier files on the canvas instead of clearing it per file"},
	}

	return &cli.Command{
		Name:            appName,
		Usage:           "fits SVG drawings into a fixed canvas",
		Version:         runtime.Version(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log everything"},
		},
		Commands: []*cli.Command{
			{
				Name:         "fit",
				Usage:        "Prints fit parameters and draw commands as JSON",
				OnUsageError: usageErrorHandler,
				Action:       runFit,
				ArgsUsage:    "FILE [FILE...]",
				Flags: append(sizeFlags,
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write JSON to `FILE` instead of STDOUT"},
				),
			},
			{
				Name:         "render",
				Usage:        "Renders the fitted drawing to a PNG or JPEG file",
				OnUsageError: usageErrorHandler,
				Action:       runRender,
				ArgsUsage:    "FILE [FILE...]",
				Flags: append(sizeFlags,
					&cli.StringFlag{Name: "renderer", Aliases: []string{"r"},
						Usage: "rasterizer `NAME` (" + render.RendererRasterx + " or " + render.RendererGG + ")"},
					&cli.StringFlag{Name: "background", Aliases: []string{"bg"}, Usage: "background `COLOR`"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"},
						Usage: "destination `FILE`, format from extension (default: slugged input name, .png)"},
				),
			},
			{
				Name:         "dumpconfig",
				Usage:        "Dumps the active configuration (YAML)",
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "[DESTINATION]",
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	// NOTE: os.Exit is called at the end of main, make sure there are no
	// other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
}
