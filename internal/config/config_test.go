package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1000, cfg.CanvasWidth)
	assert.Equal(t, 900, cfg.CanvasHeight)
	assert.False(t, cfg.Additive)
	assert.EqualValues(t, 10<<20, cfg.MaxUploadBytes)
	assert.Equal(t, "rasterx", cfg.Renderer)
	assert.Equal(t, "normal", cfg.LogLevel)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SVGFIT_CANVAS_WIDTH", "640")
	t.Setenv("SVGFIT_ADDITIVE", "true")
	t.Setenv("SVGFIT_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.CanvasWidth)
	assert.True(t, cfg.Additive)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("SVGFIT_CANVAS_HEIGHT", "700")
	path := filepath.Join(t.TempDir(), "svgfit.yaml")
	content := `canvas_width: 1200
renderer: gg
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.CanvasWidth)
	assert.Equal(t, 700, cfg.CanvasHeight)
	assert.Equal(t, "gg", cfg.Renderer)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("renderer: cairo\n"), 0o644))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "invalid config")

	require.NoError(t, os.WriteFile(path, []byte("port: [1\n"), 0o644))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadRejectsBadEnvironment(t *testing.T) {
	t.Setenv("SVGFIT_CANVAS_WIDTH", "wide")
	_, err := Load()
	assert.ErrorContains(t, err, "environment")

	t.Setenv("SVGFIT_CANVAS_WIDTH", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "invalid config")
}

func TestNewLogger(t *testing.T) {
	log := NewLogger("none", "svgfit")
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	log = NewLogger("debug", "svgfit")
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log = NewLogger("normal", "svgfit")
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
