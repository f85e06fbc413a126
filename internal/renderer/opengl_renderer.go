package renderer

import (
	"fmt"
	"math"

	"Tilt3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// OpenGLRenderer owns the drawing surface: its logical size, pixel ratio and
// tone mapping. Size changes are recorded immediately and applied to GL state
// on the next draw, so SetSize is safe to call from any window callback.
type OpenGLRenderer struct {
	Options SurfaceOptions

	shader   Shader
	textures    *TextureManager
	meshes      []*Mesh
	environment *Environment

	width, height     int32 // logical size
	fbWidth, fbHeight int32 // window framebuffer size in pixels
	pixelRatio        float32
}

func NewOpenGLRenderer(options SurfaceOptions) *OpenGLRenderer {
	return &OpenGLRenderer{
		Options:    options,
		textures:   NewTextureManager(),
		pixelRatio: 1,
	}
}

// Init compiles the standard shader. Must run on the thread owning the GL context.
func (rend *OpenGLRenderer) Init() error {
	rend.shader = InitStandardShader()
	if err := rend.shader.Compile(); err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	if Debug {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	}
	logger.Log.Info("OpenGL render initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))
	return nil
}

// SetPixelRatio clamps ratio to Options.MaxPixelRatio.
func (rend *OpenGLRenderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		ratio = 1
	}
	if limit := rend.Options.MaxPixelRatio; limit > 0 && ratio > limit {
		ratio = limit
	}
	rend.pixelRatio = ratio
}

func (rend *OpenGLRenderer) PixelRatio() float32 {
	return rend.pixelRatio
}

func (rend *OpenGLRenderer) SetSize(width, height int32) {
	rend.width, rend.height = width, height
}

func (rend *OpenGLRenderer) Size() (int32, int32) {
	return rend.width, rend.height
}

// DrawingBufferSize is the logical size scaled by the pixel ratio.
func (rend *OpenGLRenderer) DrawingBufferSize() (int32, int32) {
	return scaled(rend.width, rend.pixelRatio), scaled(rend.height, rend.pixelRatio)
}

// SetFramebufferSize records the window's real framebuffer size, used as the
// viewport when drawing to the screen.
func (rend *OpenGLRenderer) SetFramebufferSize(width, height int32) {
	rend.fbWidth, rend.fbHeight = width, height
}

func (rend *OpenGLRenderer) FramebufferSize() (int32, int32) {
	if rend.fbWidth == 0 || rend.fbHeight == 0 {
		return rend.DrawingBufferSize()
	}
	return rend.fbWidth, rend.fbHeight
}

func scaled(v int32, ratio float32) int32 {
	s := int32(math.Floor(float64(float32(v) * ratio)))
	if s < 1 {
		s = 1
	}
	return s
}

// Render draws scene from camera into the currently bound framebuffer, which
// must already have its viewport set.
func (rend *OpenGLRenderer) Render(scene *Scene, camera *Camera) {
	gl.ClearColor(ClearColor[0], ClearColor[1], ClearColor[2], rend.Options.ClearAlpha())
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if DepthTestEnabled {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthMask(true)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	scene.UpdateWorldMatrices()

	rend.shader.Use()
	rend.shader.SetMat4("viewProjection", camera.GetViewProjection())
	rend.shader.SetVec3("viewPos", camera.Position)
	rend.shader.SetFloat("exposure", rend.Options.ToneMappingExposure)
	rend.shader.SetBool("toneMapped", rend.Options.ToneMapping == ACESFilmicToneMapping)
	rend.bindEnvironment(scene.Environment)

	scene.Walk(func(node *Node) {
		for _, mesh := range node.Meshes {
			rend.drawMesh(node, mesh)
		}
	})

	gl.BindVertexArray(0)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
}

const envTextureUnit = 4

func (rend *OpenGLRenderer) bindEnvironment(env *Environment) {
	if env == nil || env.Mapping != EquirectangularReflectionMapping {
		rend.shader.SetBool("hasEnvMap", false)
		return
	}
	if env.TextureID == 0 {
		width, height := env.Width, env.Height
		if _, err := rend.textures.UploadEnvironment(env); err != nil {
			logger.Log.Error("Failed to upload environment", zap.String("source", env.Source), zap.Error(err))
			rend.shader.SetBool("hasEnvMap", false)
			return
		}
		rend.shader.SetFloat("envMaxLod", MipLevels(width, height))
		rend.environment = env
	}
	gl.ActiveTexture(gl.TEXTURE0 + envTextureUnit)
	gl.BindTexture(gl.TEXTURE_2D, env.TextureID)
	rend.shader.SetInt("envMap", envTextureUnit)
	rend.shader.SetBool("hasEnvMap", true)
}

func (rend *OpenGLRenderer) drawMesh(node *Node, mesh *Mesh) {
	if !mesh.Uploaded() {
		rend.uploadMesh(mesh)
	}

	material := mesh.Material
	if material == nil {
		material = DefaultMaterial
	}

	if FaceCullingEnabled && !material.DoubleSided {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
		gl.FrontFace(gl.CCW)
	} else {
		gl.Disable(gl.CULL_FACE)
	}

	rend.shader.SetMat4("model", node.WorldMatrix)
	rend.setMaterialUniforms(material)

	gl.BindVertexArray(mesh.VAO)
	if len(mesh.Indices) > 0 {
		gl.DrawElements(gl.TRIANGLES, int32(len(mesh.Indices)), gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, int32(mesh.VertexCount()))
	}
}

func (rend *OpenGLRenderer) setMaterialUniforms(material *Material) {
	rend.shader.SetVec4("baseColorFactor", material.BaseColorFactor)
	rend.shader.SetVec3("emissiveFactor", material.EmissiveFactor)
	rend.shader.SetFloat("metallic", material.Metallic)
	rend.shader.SetFloat("roughness", material.Roughness)
	rend.shader.SetFloat("occlusionStrength", material.OcclusionStrength)

	rend.bindTexture(0, "baseColorMap", "hasBaseColorMap", material.BaseColorTexture)
	rend.bindTexture(1, "metallicRoughnessMap", "hasMetallicRoughnessMap", material.MetallicRoughnessTexture)
	rend.bindTexture(2, "emissiveMap", "hasEmissiveMap", material.EmissiveTexture)
	rend.bindTexture(3, "occlusionMap", "hasOcclusionMap", material.OcclusionTexture)
}

func (rend *OpenGLRenderer) bindTexture(unit int32, sampler, flag string, tex *Texture) {
	if tex == nil {
		rend.shader.SetBool(flag, false)
		return
	}
	id, err := rend.textures.Upload(tex)
	if err != nil {
		logger.Log.Warn("Texture unavailable", zap.String("key", tex.Key), zap.Error(err))
		rend.shader.SetBool(flag, false)
		return
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, id)
	rend.shader.SetInt(sampler, unit)
	rend.shader.SetBool(flag, true)
}

func (rend *OpenGLRenderer) uploadMesh(mesh *Mesh) {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.InterleavedData)*4, gl.Ptr(mesh.InterleavedData), gl.STATIC_DRAW)

	var ebo uint32
	if len(mesh.Indices) > 0 {
		gl.GenBuffers(1, &ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)
	}

	stride := int32(8 * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)

	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)

	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(5*4))
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	mesh.VAO = vao
	mesh.VBO = vbo
	mesh.EBO = ebo
	rend.meshes = append(rend.meshes, mesh)
}

func (rend *OpenGLRenderer) Cleanup() {
	for _, mesh := range rend.meshes {
		gl.DeleteVertexArrays(1, &mesh.VAO)
		gl.DeleteBuffers(1, &mesh.VBO)
		if mesh.EBO != 0 {
			gl.DeleteBuffers(1, &mesh.EBO)
		}
		mesh.VAO, mesh.VBO, mesh.EBO = 0, 0, 0
	}
	rend.releaseTextures()
	rend.meshes = nil
	rend.textures.Clear()
	rend.shader.Delete()
}

// releaseTextures drops the references taken by every drawn material and the
// environment. Shared images are freed once their last user lets go.
func (rend *OpenGLRenderer) releaseTextures() {
	for _, mesh := range rend.meshes {
		if mesh.Material == nil {
			continue
		}
		for _, tex := range mesh.Material.Textures() {
			if tex.ID == 0 {
				continue
			}
			rend.textures.ReleaseTexture(tex.ID)
			tex.ID = 0
		}
	}
	if env := rend.environment; env != nil && env.TextureID != 0 {
		rend.textures.ReleaseTexture(env.TextureID)
		env.TextureID = 0
	}
	rend.environment = nil

	stats := rend.textures.GetStats()
	logger.Log.Info("Textures released",
		zap.Int("uploaded", stats.TotalTextures),
		zap.Int("cacheHits", stats.CacheHits),
		zap.Int("leaked", stats.ActiveTextures))
}
