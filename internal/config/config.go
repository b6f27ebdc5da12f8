// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then ARSTUDIO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Placement modes
const (
	ModeAdd     = "add"
	ModeReplace = "replace"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "ARSTUDIO_"

// Config holds all tunables of the studio
type Config struct {
	ProductName string `yaml:"product_name" env:"PRODUCT_NAME"`

	Mode      string `yaml:"mode" env:"MODE"`
	MaxModels int    `yaml:"max_models" env:"MAX_MODELS"`

	TargetSize       float64 `yaml:"target_size" env:"TARGET_SIZE"`
	SpriteTargetSize float64 `yaml:"sprite_target_size" env:"SPRITE_TARGET_SIZE"`
	MinScale         float64 `yaml:"min_scale" env:"MIN_SCALE"`
	MaxScale         float64 `yaml:"max_scale" env:"MAX_SCALE"`
	LateralOffset    float64 `yaml:"lateral_offset" env:"LATERAL_OFFSET"`
	FacingYaw        float64 `yaml:"facing_yaw" env:"FACING_YAW"`

	DragSensitivity  float64 `yaml:"drag_sensitivity" env:"DRAG_SENSITIVITY"`
	WheelSensitivity float64 `yaml:"wheel_sensitivity" env:"WHEEL_SENSITIVITY"`

	FOV            float64 `yaml:"fov" env:"FOV"`
	CameraDistance float64 `yaml:"camera_distance" env:"CAMERA_DISTANCE"`
	Width          int     `yaml:"width" env:"WIDTH"`
	Height         int     `yaml:"height" env:"HEIGHT"`

	CaptureDir string `yaml:"capture_dir" env:"CAPTURE_DIR"`

	StatusURL       string        `yaml:"status_url" env:"STATUS_URL"`
	StatusWebSocket string        `yaml:"status_websocket" env:"STATUS_WEBSOCKET"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`

	VideoURL  string `yaml:"video_url" env:"VIDEO_URL"`
	VideoFile string `yaml:"video_file" env:"VIDEO_FILE"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ProductName:      "self-studio",
		Mode:             ModeAdd,
		MaxModels:        2,
		TargetSize:       2.0,
		SpriteTargetSize: 3.0,
		MinScale:         0.1,
		MaxScale:         5.0,
		LateralOffset:    1.5,
		DragSensitivity:  0.002,
		WheelSensitivity: 0.001,
		FOV:              75,
		CameraDistance:   5,
		Width:            1280,
		Height:           720,
		CaptureDir:       "captures",
		PollInterval:     100 * time.Millisecond,
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty or the file does not exist) and the environment
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	switch {
	case c.Mode != ModeAdd && c.Mode != ModeReplace:
		return fmt.Errorf("%w: mode %q must be %q or %q", ErrInvalid, c.Mode, ModeAdd, ModeReplace)
	case c.MaxModels < 1:
		return fmt.Errorf("%w: max_models must be at least 1", ErrInvalid)
	case c.MinScale <= 0:
		return fmt.Errorf("%w: min_scale must be positive", ErrInvalid)
	case c.MinScale > c.MaxScale:
		return fmt.Errorf("%w: min_scale %v exceeds max_scale %v", ErrInvalid, c.MinScale, c.MaxScale)
	case c.TargetSize <= 0 || c.SpriteTargetSize <= 0:
		return fmt.Errorf("%w: target sizes must be positive", ErrInvalid)
	case c.FOV <= 0 || c.FOV >= 180:
		return fmt.Errorf("%w: fov must be in (0, 180)", ErrInvalid)
	case c.CameraDistance <= 0:
		return fmt.Errorf("%w: camera_distance must be positive", ErrInvalid)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: viewport must be positive", ErrInvalid)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalid)
	}
	return nil
}

// Capacity returns how many entries may coexist in the current mode
func (c Config) Capacity() int {
	if c.Mode == ModeReplace {
		return 1
	}
	return c.MaxModels
}
