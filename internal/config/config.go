package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v3"
)

// Config is read from SVGFIT_* environment variables, optionally overlaid
// with a YAML file.
type Config struct {
	Port           int    `envconfig:"PORT" default:"8080" yaml:"port" validate:"min=1,max=65535"`
	CanvasWidth    int    `envconfig:"CANVAS_WIDTH" default:"1000" yaml:"canvas_width" validate:"min=1,max=8192"`
	CanvasHeight   int    `envconfig:"CANVAS_HEIGHT" default:"900" yaml:"canvas_height" validate:"min=1,max=8192"`
	Additive       bool   `envconfig:"ADDITIVE" default:"false" yaml:"additive"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760" yaml:"max_upload_bytes" validate:"min=1"`
	WebDir         string `envconfig:"WEB_DIR" default:"./web" yaml:"web_dir"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080" yaml:"allowed_origins"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"normal" yaml:"log_level" validate:"oneof=none normal debug"`
	Renderer       string `envconfig:"RENDERER" default:"rasterx" yaml:"renderer" validate:"oneof=rasterx gg"`
	Background     string `envconfig:"BACKGROUND" default:"white" yaml:"background" validate:"required"`
	JPEGQuality    int    `envconfig:"JPEG_QUALITY" default:"90" yaml:"jpeg_quality" validate:"min=40,max=100"`
}

// Prefix of every environment variable read by Load.
const Prefix = "svgfit"

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the environment, then overlays the YAML file at path when
// path is not empty. Values present in the file win.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
