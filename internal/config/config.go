package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const (
	DefaultModelPath      = "./DamagedHelmet.gltf"
	DefaultEnvironmentURL = "https://dl.polyhaven.org/file/ph-assets/HDRIs/hdr/1k/pond_bridge_night_1k.hdr"
)

// Config holds everything the viewer needs at startup. Keys missing from a
// loaded file keep their defaults; keys present override them, zero included.
type Config struct {
	ModelPath      string `json:"model_path"`
	EnvironmentURL string `json:"environment_url"`

	WindowTitle  string `json:"window_title"`
	WindowWidth  int32  `json:"window_width"`
	WindowHeight int32  `json:"window_height"`

	// Camera
	Fov     float32 `json:"fov"`
	Near    float32 `json:"near"`
	Far     float32 `json:"far"`
	CameraZ float32 `json:"camera_z"`

	// Renderer surface
	MaxPixelRatio float32 `json:"max_pixel_ratio"`
	Exposure      float32 `json:"exposure"`
	ToneMapping   string  `json:"tone_mapping"` // "aces" or "none"
	Samples       int     `json:"samples"`      // 0 disables multisampling
	Transparent   bool    `json:"transparent"`

	// Post-processing
	RGBShiftAmount float32 `json:"rgb_shift_amount"`
	RGBShiftAngle  float32 `json:"rgb_shift_angle"`

	// Orientation controller
	RotationRange float32 `json:"rotation_range"`
	TweenDuration float32 `json:"tween_duration"`

	LogLevel string `json:"log_level"`
}

func Default() Config {
	return Config{
		ModelPath:      DefaultModelPath,
		EnvironmentURL: DefaultEnvironmentURL,
		WindowTitle:    "tilt3d",
		WindowWidth:    1280,
		WindowHeight:   720,
		Fov:            40,
		Near:           0.1,
		Far:            100,
		CameraZ:        4,
		MaxPixelRatio:  2,
		Exposure:       1,
		ToneMapping:    "aces",
		Samples:        4,
		Transparent:    true,
		RGBShiftAmount: 0.0020,
		RGBShiftAngle:  0,
		RotationRange:  math.Pi * 0.2,
		TweenDuration:  0.9,
		LogLevel:       "info",
	}
}

// Load reads a JSON config file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the renderer cannot start with.
func (c Config) Validate() error {
	switch {
	case c.ModelPath == "":
		return fmt.Errorf("model path is empty")
	case c.WindowWidth <= 0 || c.WindowHeight <= 0:
		return fmt.Errorf("window size %dx%d is invalid", c.WindowWidth, c.WindowHeight)
	case c.Near <= 0 || c.Far <= c.Near:
		return fmt.Errorf("clip planes near=%g far=%g are invalid", c.Near, c.Far)
	case c.Fov <= 0 || c.Fov >= 180:
		return fmt.Errorf("fov %g is out of range", c.Fov)
	case c.TweenDuration <= 0:
		return fmt.Errorf("tween duration %g must be positive", c.TweenDuration)
	case c.Samples < 0:
		return fmt.Errorf("samples %d is negative", c.Samples)
	case c.ToneMapping != "aces" && c.ToneMapping != "none":
		return fmt.Errorf("tone mapping %q is not aces or none", c.ToneMapping)
	}
	return nil
}
