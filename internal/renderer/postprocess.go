package renderer

import (
	"fmt"

	"Tilt3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// RenderTarget is an offscreen color + depth framebuffer.
type RenderTarget struct {
	FBO      uint32
	ColorTex uint32
	DepthRB  uint32
	Width    int32
	Height   int32
}

func NewRenderTarget(width, height int32) (*RenderTarget, error) {
	var undo Unwind
	t := &RenderTarget{Width: width, Height: height}

	gl.GenFramebuffers(1, &t.FBO)
	undo.Add(func() { gl.DeleteFramebuffers(1, &t.FBO) })
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBO)

	gl.GenTextures(1, &t.ColorTex)
	undo.Add(func() { gl.DeleteTextures(1, &t.ColorTex) })
	gl.BindTexture(gl.TEXTURE_2D, t.ColorTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.ColorTex, 0)

	gl.GenRenderbuffers(1, &t.DepthRB)
	undo.Add(func() { gl.DeleteRenderbuffers(1, &t.DepthRB) })
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.DepthRB)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, t.DepthRB)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		undo.Unwind()
		return nil, fmt.Errorf("framebuffer %dx%d incomplete: 0x%x", width, height, status)
	}
	undo.Discard()
	return t, nil
}

func (t *RenderTarget) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBO)
	gl.Viewport(0, 0, t.Width, t.Height)
}

func (t *RenderTarget) Destroy() {
	gl.DeleteFramebuffers(1, &t.FBO)
	gl.DeleteTextures(1, &t.ColorTex)
	gl.DeleteRenderbuffers(1, &t.DepthRB)
}

// Pass is one step of the post-processing chain. read holds the previous
// pass output; a pass either draws into write or, when toScreen is set, into
// the default framebuffer.
type Pass interface {
	Render(rend *OpenGLRenderer, read, write *RenderTarget, toScreen bool)
	SetSize(width, height int32)
	NeedsSwap() bool
}

// Composer runs an ordered list of passes over two ping-pong targets.
// Like OpenGLRenderer, SetSize only records the new size; targets are
// reallocated on the next Render.
type Composer struct {
	renderer      *OpenGLRenderer
	passes        []Pass
	read, write   *RenderTarget
	width, height int32
	dirty         bool
}

func NewComposer(rend *OpenGLRenderer) *Composer {
	width, height := rend.Size()
	return &Composer{renderer: rend, width: width, height: height, dirty: true}
}

func (c *Composer) AddPass(p Pass) {
	c.passes = append(c.passes, p)
	w, h := c.renderer.DrawingBufferSize()
	p.SetSize(w, h)
}

func (c *Composer) Passes() []Pass {
	return c.passes
}

// SetSize resizes the chain's internal buffers to the logical size scaled by
// the renderer's pixel ratio.
func (c *Composer) SetSize(width, height int32) {
	if width == c.width && height == c.height && !c.dirty {
		return
	}
	c.width, c.height = width, height
	c.dirty = true

	w, h := scaled(width, c.renderer.PixelRatio()), scaled(height, c.renderer.PixelRatio())
	for _, p := range c.passes {
		p.SetSize(w, h)
	}
}

func (c *Composer) Size() (int32, int32) {
	return c.width, c.height
}

func (c *Composer) ensureTargets() error {
	if !c.dirty && c.read != nil {
		return nil
	}
	c.destroyTargets()

	w, h := scaled(c.width, c.renderer.PixelRatio()), scaled(c.height, c.renderer.PixelRatio())
	read, err := NewRenderTarget(w, h)
	if err != nil {
		return err
	}
	write, err := NewRenderTarget(w, h)
	if err != nil {
		read.Destroy()
		return err
	}
	c.read, c.write = read, write
	c.dirty = false
	logger.Log.Debug("Composer targets allocated", zap.Int32("width", w), zap.Int32("height", h))
	return nil
}

func (c *Composer) destroyTargets() {
	if c.read != nil {
		c.read.Destroy()
		c.read = nil
	}
	if c.write != nil {
		c.write.Destroy()
		c.write = nil
	}
}

// Render executes every pass once; the last pass draws to the screen.
func (c *Composer) Render() {
	if err := c.ensureTargets(); err != nil {
		logger.Log.Error("Composer targets unavailable", zap.Error(err))
		return
	}
	last := len(c.passes) - 1
	for i, p := range c.passes {
		p.Render(c.renderer, c.read, c.write, i == last)
		if p.NeedsSwap() {
			c.read, c.write = c.write, c.read
		}
	}
}

func (c *Composer) Cleanup() {
	c.destroyTargets()
	for _, p := range c.passes {
		if d, ok := p.(interface{ Cleanup() }); ok {
			d.Cleanup()
		}
	}
}

func bindScreen(rend *OpenGLRenderer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	w, h := rend.FramebufferSize()
	gl.Viewport(0, 0, w, h)
}

// RenderPass rasterizes Scene from Camera into the read buffer.
type RenderPass struct {
	Scene  *Scene
	Camera *Camera
}

func NewRenderPass(scene *Scene, camera *Camera) *RenderPass {
	return &RenderPass{Scene: scene, Camera: camera}
}

func (p *RenderPass) Render(rend *OpenGLRenderer, read, _ *RenderTarget, toScreen bool) {
	if toScreen {
		bindScreen(rend)
	} else {
		read.Bind()
	}
	rend.Render(p.Scene, p.Camera)
}

func (p *RenderPass) SetSize(int32, int32) {}

func (p *RenderPass) NeedsSwap() bool { return false }

// ShaderPass draws a full-screen triangle sampling the previous output as
// tDiffuse. Float uniforms are set every frame from Uniforms.
type ShaderPass struct {
	Uniforms map[string]float32

	shader Shader
	vao    uint32
}

func NewShaderPass(shader Shader, uniforms map[string]float32) (*ShaderPass, error) {
	if err := shader.Compile(); err != nil {
		return nil, fmt.Errorf("shader pass: %w", err)
	}
	p := &ShaderPass{Uniforms: uniforms, shader: shader}
	// Core profile refuses draws without a bound VAO
	gl.GenVertexArrays(1, &p.vao)
	return p, nil
}

// NewRGBShiftPass separates the red and blue channels by amount (in UV units)
// along angle (radians).
func NewRGBShiftPass(amount, angle float32) (*ShaderPass, error) {
	return NewShaderPass(InitRGBShiftShader(), map[string]float32{
		"amount": amount,
		"angle":  angle,
	})
}

func (p *ShaderPass) Render(rend *OpenGLRenderer, read, write *RenderTarget, toScreen bool) {
	if toScreen {
		bindScreen(rend)
	} else {
		write.Bind()
	}
	gl.ClearColor(ClearColor[0], ClearColor[1], ClearColor[2], rend.Options.ClearAlpha())
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.Disable(gl.DEPTH_TEST)

	p.shader.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, read.ColorTex)
	p.shader.SetInt("tDiffuse", 0)
	for name, value := range p.Uniforms {
		p.shader.SetFloat(name, value)
	}

	gl.BindVertexArray(p.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

func (p *ShaderPass) SetSize(int32, int32) {}

func (p *ShaderPass) NeedsSwap() bool { return true }

func (p *ShaderPass) Cleanup() {
	gl.DeleteVertexArrays(1, &p.vao)
	p.shader.Delete()
}
