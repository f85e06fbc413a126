package renderer

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeTextureManager() (*TextureManager, *[]uint32) {
	tm := NewTextureManager()
	next := uint32(0)
	var deleted []uint32
	tm.uploadImage = func(image.Image) uint32 { next++; return next }
	tm.uploadHDR = func(int, int, []float32) uint32 { next++; return next }
	tm.deleteTex = func(id uint32) { deleted = append(deleted, id) }
	return tm, &deleted
}

func TestTextureManagerCachesByKey(t *testing.T) {
	tm, _ := newFakeTextureManager()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	a := &Texture{Key: "helmet#0", Image: img}
	b := &Texture{Key: "helmet#0", Image: img}

	idA, err := tm.Upload(a)
	require.NoError(t, err)
	idB, err := tm.Upload(b)
	require.NoError(t, err)

	assert.Equal(t, idA, idB)
	assert.Nil(t, a.Image, "image should be dropped after upload")
	stats := tm.GetStats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.CacheMisses)
	assert.Equal(t, 1, stats.ActiveTextures)
}

func TestTextureManagerUploadedTextureIsReused(t *testing.T) {
	tm, _ := newFakeTextureManager()
	tex := &Texture{Key: "k", ID: 42}

	id, err := tm.Upload(tex)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id)
	assert.Equal(t, 0, tm.GetStats().CacheMisses)
}

func TestTextureManagerMissingImage(t *testing.T) {
	tm, _ := newFakeTextureManager()

	_, err := tm.Upload(&Texture{Key: "empty"})
	assert.Error(t, err)
}

func TestTextureManagerReleaseFreesAtZero(t *testing.T) {
	tm, deleted := newFakeTextureManager()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	id, _ := tm.Upload(&Texture{Key: "k", Image: img})
	_, _ = tm.Upload(&Texture{Key: "k", Image: img})

	tm.ReleaseTexture(id)
	assert.Empty(t, *deleted)

	tm.ReleaseTexture(id)
	assert.Equal(t, []uint32{id}, *deleted)
	assert.Equal(t, 0, tm.GetStats().ActiveTextures)
}

func TestRendererReleasesSharedTexturesOnce(t *testing.T) {
	tm, deleted := newFakeTextureManager()
	rend := NewOpenGLRenderer(DefaultSurfaceOptions())
	rend.textures = tm
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	visor := &Texture{Key: "helmet#image0", Image: img}
	shell := &Texture{Key: "helmet#image0", Image: img}
	id, err := tm.Upload(visor)
	require.NoError(t, err)
	_, err = tm.Upload(shell)
	require.NoError(t, err)
	env := &Environment{Width: 2, Height: 1, Pixels: make([]float32, 6), Source: "night.hdr"}
	envID, err := tm.UploadEnvironment(env)
	require.NoError(t, err)

	rend.meshes = []*Mesh{
		{Material: &Material{BaseColorTexture: visor}},
		{Material: &Material{BaseColorTexture: shell, EmissiveTexture: shell}},
		{},
	}
	rend.environment = env

	rend.releaseTextures()

	assert.Equal(t, []uint32{id, envID}, *deleted)
	assert.Zero(t, visor.ID)
	assert.Zero(t, shell.ID)
	assert.Zero(t, env.TextureID)
	assert.Equal(t, 0, tm.GetStats().ActiveTextures)
}

func TestTextureManagerUploadEnvironment(t *testing.T) {
	tm, _ := newFakeTextureManager()
	env := &Environment{Width: 2, Height: 1, Pixels: make([]float32, 6), Mapping: EquirectangularReflectionMapping, Source: "night.hdr"}

	id, err := tm.UploadEnvironment(env)
	require.NoError(t, err)

	assert.NotZero(t, id)
	assert.Equal(t, id, env.TextureID)
	assert.Nil(t, env.Pixels)

	again, err := tm.UploadEnvironment(env)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestTextureManagerUploadEnvironmentShortPixels(t *testing.T) {
	tm, _ := newFakeTextureManager()

	_, err := tm.UploadEnvironment(&Environment{Width: 4, Height: 4, Pixels: make([]float32, 3)})
	assert.Error(t, err)
}

func TestMipLevels(t *testing.T) {
	assert.Equal(t, float32(10), MipLevels(1024, 512))
	assert.Equal(t, float32(0), MipLevels(1, 1))
}
