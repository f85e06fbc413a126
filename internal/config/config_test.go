package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultModelPath, cfg.ModelPath)
	assert.Equal(t, DefaultEnvironmentURL, cfg.EnvironmentURL)
	assert.Equal(t, float32(40), cfg.Fov)
	assert.Equal(t, float32(4), cfg.CameraZ)
	assert.Equal(t, float32(0.0020), cfg.RGBShiftAmount)
	assert.Equal(t, float32(0.9), cfg.TweenDuration)
	assert.InDelta(t, math.Pi*0.2, float64(cfg.RotationRange), 1e-6)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilt3d.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_path":"assets/helmet.gltf","window_width":800,"log_level":"debug"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "assets/helmet.gltf", cfg.ModelPath)
	assert.Equal(t, int32(800), cfg.WindowWidth)
	assert.Equal(t, int32(720), cfg.WindowHeight)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultEnvironmentURL, cfg.EnvironmentURL)
}

func TestLoadExplicitZeroOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilt3d.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rgb_shift_amount":0,"rgb_shift_angle":0,"camera_z":0,"samples":0,"transparent":false}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Zero(t, cfg.RGBShiftAmount)
	assert.Zero(t, cfg.RGBShiftAngle)
	assert.Zero(t, cfg.CameraZ)
	assert.Zero(t, cfg.Samples)
	assert.False(t, cfg.Transparent)
	assert.Equal(t, float32(40), cfg.Fov)
}

func TestLoadRejectsZeroFov(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilt3d.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fov":0}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_path":`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Far = cfg.Near
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.WindowHeight = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ToneMapping = "filmic"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ToneMapping = "none"
	assert.NoError(t, cfg.Validate())
}
