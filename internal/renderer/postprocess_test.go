package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPass struct {
	sizes [][2]int32
}

func (p *recordingPass) Render(*OpenGLRenderer, *RenderTarget, *RenderTarget, bool) {}

func (p *recordingPass) SetSize(w, h int32) { p.sizes = append(p.sizes, [2]int32{w, h}) }

func (p *recordingPass) NeedsSwap() bool { return false }

func TestOpenGLRendererPixelRatioIsClamped(t *testing.T) {
	rend := NewOpenGLRenderer(DefaultSurfaceOptions())

	rend.SetPixelRatio(3)
	assert.Equal(t, float32(2), rend.PixelRatio())

	rend.SetPixelRatio(1.5)
	assert.Equal(t, float32(1.5), rend.PixelRatio())

	rend.SetPixelRatio(0)
	assert.Equal(t, float32(1), rend.PixelRatio())
}

func TestOpenGLRendererDrawingBufferSize(t *testing.T) {
	rend := NewOpenGLRenderer(DefaultSurfaceOptions())
	rend.SetPixelRatio(2)
	rend.SetSize(800, 600)

	w, h := rend.Size()
	assert.Equal(t, int32(800), w)
	assert.Equal(t, int32(600), h)

	w, h = rend.DrawingBufferSize()
	assert.Equal(t, int32(1600), w)
	assert.Equal(t, int32(1200), h)

	// Falls back to the drawing buffer until the window reports its own.
	w, _ = rend.FramebufferSize()
	assert.Equal(t, int32(1600), w)
	rend.SetFramebufferSize(1000, 700)
	w, h = rend.FramebufferSize()
	assert.Equal(t, int32(1000), w)
	assert.Equal(t, int32(700), h)
}

func TestComposerSetSizePropagatesToPasses(t *testing.T) {
	rend := NewOpenGLRenderer(DefaultSurfaceOptions())
	rend.SetPixelRatio(2)
	rend.SetSize(100, 50)

	c := NewComposer(rend)
	pass := &recordingPass{}
	c.AddPass(pass)
	assert.Len(t, c.Passes(), 1)
	assert.Equal(t, [2]int32{200, 100}, pass.sizes[0])

	c.SetSize(640, 480)
	w, h := c.Size()
	assert.Equal(t, int32(640), w)
	assert.Equal(t, int32(480), h)
	assert.Equal(t, [2]int32{1280, 960}, pass.sizes[len(pass.sizes)-1])
}

func TestComposerStartsDirty(t *testing.T) {
	rend := NewOpenGLRenderer(DefaultSurfaceOptions())
	rend.SetSize(10, 10)
	c := NewComposer(rend)

	assert.True(t, c.dirty)
	c.SetSize(10, 10)
	assert.True(t, c.dirty, "targets are allocated lazily on Render")
}

func TestScaledNeverZero(t *testing.T) {
	assert.Equal(t, int32(1), scaled(0, 2))
	assert.Equal(t, int32(3), scaled(2, 1.5))
}

func TestParseToneMapping(t *testing.T) {
	aces, err := ParseToneMapping("aces")
	require.NoError(t, err)
	assert.Equal(t, ACESFilmicToneMapping, aces)

	none, err := ParseToneMapping("none")
	require.NoError(t, err)
	assert.Equal(t, NoToneMapping, none)
	assert.Equal(t, "none", none.String())

	_, err = ParseToneMapping("reinhard")
	assert.Error(t, err)
}

func TestOpaqueSurfaceClearsWithFullAlpha(t *testing.T) {
	opts := DefaultSurfaceOptions()
	assert.Equal(t, ClearColor[3], opts.ClearAlpha())

	opts.Alpha = false
	assert.Equal(t, float32(1), opts.ClearAlpha())
}
