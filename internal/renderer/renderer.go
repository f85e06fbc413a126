package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var FaceCullingEnabled bool = true
var Debug bool = false
var DepthTestEnabled bool = true

// ClearColor is transparent so the window compositor shows through.
var ClearColor = mgl32.Vec4{0, 0, 0, 0}

type ToneMapping int

const (
	NoToneMapping ToneMapping = iota
	ACESFilmicToneMapping
)

// ParseToneMapping accepts "aces" or "none".
func ParseToneMapping(name string) (ToneMapping, error) {
	switch name {
	case "aces", "":
		return ACESFilmicToneMapping, nil
	case "none":
		return NoToneMapping, nil
	}
	return NoToneMapping, fmt.Errorf("unknown tone mapping %q", name)
}

func (t ToneMapping) String() string {
	if t == ACESFilmicToneMapping {
		return "aces"
	}
	return "none"
}

// SurfaceOptions configures the drawing surface owned by OpenGLRenderer.
// Antialias and Alpha pick the window's framebuffer format; an opaque
// surface clears to ClearColor with full alpha.
type SurfaceOptions struct {
	MaxPixelRatio       float32
	ToneMapping         ToneMapping
	ToneMappingExposure float32
	Antialias           bool
	Alpha               bool
}

// ClearAlpha is the alpha written when the surface is cleared.
func (o SurfaceOptions) ClearAlpha() float32 {
	if o.Alpha {
		return ClearColor[3]
	}
	return 1
}

func DefaultSurfaceOptions() SurfaceOptions {
	return SurfaceOptions{
		MaxPixelRatio:       2,
		ToneMapping:         ACESFilmicToneMapping,
		ToneMappingExposure: 1,
		Antialias:           true,
		Alpha:               true,
	}
}
