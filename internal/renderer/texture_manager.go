package renderer

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"Tilt3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
}

// TextureManager uploads material and environment textures once per key and
// reference counts the resulting GL objects.
type TextureManager struct {
	textureCache    map[string]uint32 // key -> OpenGL texture ID
	textureRefCount map[uint32]int    // texture ID -> reference count
	textureKeys     map[uint32]string // texture ID -> key (for debugging)
	mu              sync.RWMutex
	stats           TextureStats

	// GL entry points, swapped out in tests
	uploadImage func(img image.Image) uint32
	uploadHDR   func(width, height int, pixels []float32) uint32
	deleteTex   func(id uint32)
}

func NewTextureManager() *TextureManager {
	return &TextureManager{
		textureCache:    make(map[string]uint32),
		textureRefCount: make(map[uint32]int),
		textureKeys:     make(map[uint32]string),
		uploadImage:     glUploadImage,
		uploadHDR:       glUploadHDR,
		deleteTex:       glDeleteTexture,
	}
}

// Upload returns the GL id for tex, uploading its image on first use.
// The decoded image is released once it lives on the GPU.
func (tm *TextureManager) Upload(tex *Texture) (uint32, error) {
	if tex == nil {
		return 0, nil
	}
	if tex.ID != 0 {
		return tex.ID, nil
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if textureID, exists := tm.textureCache[tex.Key]; exists {
		tm.textureRefCount[textureID]++
		tm.stats.CacheHits++
		tex.ID = textureID
		tex.Image = nil
		return textureID, nil
	}

	if tex.Image == nil {
		return 0, fmt.Errorf("texture %q has no image data", tex.Key)
	}
	tm.stats.CacheMisses++

	textureID := tm.uploadImage(tex.Image)
	tm.track(tex.Key, textureID)

	logger.Log.Debug("Texture uploaded",
		zap.String("key", tex.Key),
		zap.Uint32("textureID", textureID),
		zap.Int("width", tex.Image.Bounds().Dx()),
		zap.Int("height", tex.Image.Bounds().Dy()))

	tex.ID = textureID
	tex.Image = nil
	return textureID, nil
}

// UploadEnvironment uploads the HDR pixels as a mipmapped float texture.
func (tm *TextureManager) UploadEnvironment(env *Environment) (uint32, error) {
	if env == nil {
		return 0, nil
	}
	if env.TextureID != 0 {
		return env.TextureID, nil
	}
	if env.Width <= 0 || env.Height <= 0 || len(env.Pixels) < env.Width*env.Height*3 {
		return 0, fmt.Errorf("environment %q has %d floats for %dx%d", env.Source, len(env.Pixels), env.Width, env.Height)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.stats.CacheMisses++
	textureID := tm.uploadHDR(env.Width, env.Height, env.Pixels)
	tm.track("env:"+env.Source, textureID)

	logger.Log.Info("Environment uploaded",
		zap.String("source", env.Source),
		zap.Stringer("mapping", env.Mapping),
		zap.Uint32("textureID", textureID),
		zap.Int("width", env.Width),
		zap.Int("height", env.Height))

	env.TextureID = textureID
	env.Pixels = nil
	return textureID, nil
}

func (tm *TextureManager) track(key string, textureID uint32) {
	tm.textureCache[key] = textureID
	tm.textureRefCount[textureID] = 1
	tm.textureKeys[textureID] = key
	tm.stats.TotalTextures++
	tm.stats.ActiveTextures++
}

// ReleaseTexture decrements reference count and frees texture if count reaches 0
func (tm *TextureManager) ReleaseTexture(textureID uint32) {
	if textureID == 0 {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, exists := tm.textureRefCount[textureID]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture",
			zap.Uint32("textureID", textureID))
		return
	}

	refCount--
	tm.textureRefCount[textureID] = refCount
	if refCount > 0 {
		return
	}

	tm.deleteTex(textureID)
	key := tm.textureKeys[textureID]
	delete(tm.textureCache, key)
	delete(tm.textureRefCount, textureID)
	delete(tm.textureKeys, textureID)
	tm.stats.ActiveTextures--

	logger.Log.Debug("Texture freed",
		zap.Uint32("textureID", textureID),
		zap.String("key", key))
}

// GetStats returns current texture manager statistics
func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.textureRefCount)
	return stats
}

// Clear releases all textures regardless of reference counts
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for textureID := range tm.textureRefCount {
		tm.deleteTex(textureID)
	}

	tm.textureCache = make(map[string]uint32)
	tm.textureRefCount = make(map[uint32]int)
	tm.textureKeys = make(map[uint32]string)
	tm.stats.ActiveTextures = 0
}

func glUploadImage(img image.Image) uint32 {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != rgba.Rect.Dx()*4 {
		// Convert to a tightly packed *image.RGBA
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.TexImage2D(
		gl.TEXTURE_2D, 0, gl.RGBA,
		int32(rgba.Rect.Size().X), int32(rgba.Rect.Size().Y),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return textureID
}

func glUploadHDR(width, height int, pixels []float32) uint32 {
	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(
		gl.TEXTURE_2D, 0, gl.RGB16F,
		int32(width), int32(height),
		0, gl.RGB, gl.FLOAT, gl.Ptr(pixels))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)

	// Wrap horizontally around the seam, clamp at the poles
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return textureID
}

func glDeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

// MipLevels returns the number of mip levels below the base image.
func MipLevels(width, height int) float32 {
	size := width
	if height > size {
		size = height
	}
	if size <= 1 {
		return 0
	}
	return float32(math.Floor(math.Log2(float64(size))))
}
