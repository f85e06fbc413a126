package renderer

import (
	"Tilt3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// UniformCache remembers uniform locations per program. The GLSL compiler
// strips unused uniforms, so a name resolving to -1 is reported once and
// then silently skipped.
type UniformCache struct {
	locations map[string]int32
	program   uint32
	lookup    func(program uint32, name string) int32
}

func NewUniformCache(program uint32) *UniformCache {
	return &UniformCache{
		locations: make(map[string]int32),
		program:   program,
		lookup:    glUniformLocation,
	}
}

func glUniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// GetLocation returns the cached uniform location or fetches and caches it
func (uc *UniformCache) GetLocation(name string) int32 {
	if loc, exists := uc.locations[name]; exists {
		return loc
	}

	loc := uc.lookup(uc.program, name)
	if loc == -1 {
		logger.Log.Debug("Uniform not active", zap.Uint32("program", uc.program), zap.String("name", name))
	}
	uc.locations[name] = loc
	return loc
}

func (uc *UniformCache) with(name string, set func(loc int32)) {
	if loc := uc.GetLocation(name); loc != -1 {
		set(loc)
	}
}

func (uc *UniformCache) SetFloat(name string, value float32) {
	uc.with(name, func(loc int32) { gl.Uniform1f(loc, value) })
}

func (uc *UniformCache) SetVec3(name string, x, y, z float32) {
	uc.with(name, func(loc int32) { gl.Uniform3f(loc, x, y, z) })
}

func (uc *UniformCache) SetVec4(name string, x, y, z, w float32) {
	uc.with(name, func(loc int32) { gl.Uniform4f(loc, x, y, z, w) })
}

func (uc *UniformCache) SetInt(name string, value int32) {
	uc.with(name, func(loc int32) { gl.Uniform1i(loc, value) })
}

func (uc *UniformCache) SetMat4(name string, value mgl32.Mat4) {
	uc.with(name, func(loc int32) { gl.UniformMatrix4fv(loc, 1, false, &value[0]) })
}

// Clear forgets every location; call it after relinking the program.
func (uc *UniformCache) Clear() {
	uc.locations = make(map[string]int32)
}
