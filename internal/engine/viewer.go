package engine

import (
	"context"
	"fmt"
	"runtime"

	"Tilt3D/internal/behaviour"
	"Tilt3D/internal/config"
	"Tilt3D/internal/loader"
	"Tilt3D/internal/logger"
	"Tilt3D/internal/renderer"
	"Tilt3D/internal/tween"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Surface is the renderer's drawing buffer.
type Surface interface {
	SetSize(width, height int32)
	SetPixelRatio(ratio float32)
}

// Pipeline is the post-processing chain presenting each frame.
type Pipeline interface {
	SetSize(width, height int32)
	Render()
}

// Viewer owns the window, the scene and everything mutating it. All of its
// methods except Run's loader goroutines execute on the render thread.
type Viewer struct {
	Config config.Config
	Camera *renderer.Camera
	Scene  *renderer.Scene

	Width  int32
	Height int32

	source     loader.Source
	window     *glfw.Window
	surface    Surface
	chain      Pipeline
	model      renderer.ModelRef
	tweener    *tween.Tweener
	controller *behaviour.OrientationController
	behaviours *behaviour.BehaviourManager

	loadsStarted bool
	modelEvents  <-chan loader.Event[*renderer.Node]
	envEvents    <-chan loader.Event[*renderer.Environment]
}

func NewViewer(cfg config.Config, source loader.Source) *Viewer {
	v := &Viewer{
		Config: cfg,
		Scene:  renderer.NewScene(),
		Width:  cfg.WindowWidth,
		Height: cfg.WindowHeight,
		source: source,
	}

	v.Camera = renderer.NewPerspectiveCamera(cfg.Fov, float32(cfg.WindowWidth)/float32(cfg.WindowHeight), cfg.Near, cfg.Far)
	v.Camera.SetPosition(0, 0, cfg.CameraZ)
	v.Camera.LookAt(mgl32.Vec3{})

	v.tweener = tween.NewTweener()
	v.tweener.Duration = cfg.TweenDuration
	v.controller = behaviour.NewOrientationController(&v.model, v.tweener)
	v.controller.Range = cfg.RotationRange

	v.behaviours = behaviour.NewBehaviourManager()
	v.behaviours.Add(v.controller)
	return v
}

// Model returns the loaded model root, or nil until the model has loaded.
func (v *Viewer) Model() *renderer.Node {
	return v.model.Get()
}

// Run opens the window and renders until ctx is cancelled or the window is
// closed. It must be called from the main goroutine.
func (v *Viewer) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	options, err := v.surfaceOptions()
	if err != nil {
		return err
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	for _, h := range surfaceHints(options, v.Config.Samples) {
		glfw.WindowHint(h.hint, h.value)
	}
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(int(v.Width), int(v.Height), v.Config.WindowTitle, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	v.window = window
	styleWindow(window)

	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("initialize OpenGL: %w", err)
	}
	glfw.SwapInterval(1)
	if options.Antialias {
		gl.Enable(gl.MULTISAMPLE)
	}

	rend := renderer.NewOpenGLRenderer(options)
	if err := rend.Init(); err != nil {
		return err
	}
	defer rend.Cleanup()

	scaleX, _ := window.GetContentScale()
	rend.SetPixelRatio(scaleX)
	fbWidth, fbHeight := window.GetFramebufferSize()
	rend.SetFramebufferSize(int32(fbWidth), int32(fbHeight))

	composer := renderer.NewComposer(rend)
	composer.AddPass(renderer.NewRenderPass(v.Scene, v.Camera))
	shift, err := renderer.NewRGBShiftPass(v.Config.RGBShiftAmount, v.Config.RGBShiftAngle)
	if err != nil {
		return err
	}
	composer.AddPass(shift)
	defer composer.Cleanup()

	v.surface = rend
	v.chain = composer

	width, height := window.GetSize()
	v.Resize(int32(width), int32(height))

	window.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		v.Resize(int32(width), int32(height))
	})
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		rend.SetFramebufferSize(int32(width), int32(height))
	})
	window.SetContentScaleCallback(func(_ *glfw.Window, x, _ float32) {
		v.SetPixelRatio(x)
	})
	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		v.HandleCursor(x, y)
	})

	logger.Log.Info("Viewer started",
		zap.String("model", v.Config.ModelPath),
		zap.String("environment", v.Config.EnvironmentURL),
		zap.Int32("width", v.Width),
		zap.Int32("height", v.Height),
		zap.Float32("pixelRatio", rend.PixelRatio()),
		zap.Stringer("toneMapping", options.ToneMapping),
		zap.Bool("antialias", options.Antialias),
		zap.Bool("alpha", options.Alpha))

	v.StartLoaders(ctx)
	frames := RenderLoop(ctx, glfwSink{window: window}, v.Frame)

	logger.Log.Info("Viewer stopped", zap.Int("frames", frames))
	return nil
}

func (v *Viewer) surfaceOptions() (renderer.SurfaceOptions, error) {
	options := renderer.DefaultSurfaceOptions()
	toneMapping, err := renderer.ParseToneMapping(v.Config.ToneMapping)
	if err != nil {
		return options, err
	}
	options.ToneMapping = toneMapping
	options.ToneMappingExposure = v.Config.Exposure
	options.MaxPixelRatio = v.Config.MaxPixelRatio
	options.Antialias = v.Config.Samples > 0
	options.Alpha = v.Config.Transparent
	return options, nil
}

type windowHint struct {
	hint  glfw.Hint
	value int
}

// surfaceHints maps the surface options onto framebuffer hints.
func surfaceHints(options renderer.SurfaceOptions, samples int) []windowHint {
	hints := []windowHint{{glfw.Samples, 0}, {glfw.TransparentFramebuffer, glfw.False}}
	if options.Antialias {
		hints[0].value = samples
	}
	if options.Alpha {
		hints[1].value = glfw.True
	}
	return hints
}

// StartLoaders begins the environment and model fetches. Only the first
// call has any effect.
func (v *Viewer) StartLoaders(ctx context.Context) {
	if v.loadsStarted {
		return
	}
	v.loadsStarted = true
	v.envEvents = loader.LoadEnvironment(ctx, v.source, v.Config.EnvironmentURL)
	v.modelEvents = loader.LoadModel(ctx, v.source, v.Config.ModelPath)
}

// Frame runs one tick: apply finished loads, advance tweens, render.
func (v *Viewer) Frame(dt float32) {
	v.drainLoaders()
	v.behaviours.UpdateAll(dt)
	if v.chain != nil {
		v.chain.Render()
	}
}

// Resize keeps the camera, drawing buffer and post-processing chain in step
// with the window's logical size.
func (v *Viewer) Resize(width, height int32) {
	if width <= 0 || height <= 0 {
		return
	}
	v.Width, v.Height = width, height
	v.Camera.SetAspectRatio(float32(width) / float32(height))
	if v.surface != nil {
		v.surface.SetSize(width, height)
	}
	if v.chain != nil {
		v.chain.SetSize(width, height)
	}
}

// SetPixelRatio applies a new display scale, e.g. after the window moved to
// another monitor, and resizes the drawing buffer and targets to match.
func (v *Viewer) SetPixelRatio(ratio float32) {
	if v.surface == nil {
		return
	}
	logger.Log.Debug("Content scale changed", zap.Float32("scale", ratio))
	v.surface.SetPixelRatio(ratio)
	v.Resize(v.Width, v.Height)
}

func (v *Viewer) HandleCursor(x, y float64) {
	v.controller.OnCursorMove(x, y, int(v.Width), int(v.Height))
}

// drainLoaders applies every loader event that is ready without blocking.
func (v *Viewer) drainLoaders() {
	drain(&v.modelEvents, v.applyModelEvent)
	drain(&v.envEvents, v.applyEnvironmentEvent)
}

func drain[T any](events *<-chan loader.Event[T], apply func(loader.Event[T])) {
	for *events != nil {
		select {
		case ev, ok := <-*events:
			if !ok {
				*events = nil
				return
			}
			apply(ev)
		default:
			return
		}
	}
}

func (v *Viewer) applyModelEvent(ev loader.Event[*renderer.Node]) {
	switch ev.Kind {
	case loader.Progress:
		logger.Log.Info(fmt.Sprintf("%.0f%% loaded", ev.Percent()), zap.String("model", ev.Location))
	case loader.Success:
		if !v.model.Set(ev.Asset) {
			logger.Log.Warn("Model already loaded, ignoring", zap.String("model", ev.Location))
			return
		}
		v.Scene.Add(ev.Asset)
		logger.Log.Info("Model loaded",
			zap.String("model", ev.Location),
			zap.Int("meshes", ev.Asset.MeshCount()))
	case loader.Failure:
		logger.Log.Error("Failed to load model", zap.String("model", ev.Location), zap.Error(ev.Err))
	}
}

func (v *Viewer) applyEnvironmentEvent(ev loader.Event[*renderer.Environment]) {
	switch ev.Kind {
	case loader.Progress:
		logger.Log.Debug("Environment loading",
			zap.String("environment", ev.Location),
			zap.Float64("percent", ev.Percent()))
	case loader.Success:
		v.Scene.SetEnvironment(ev.Asset)
		logger.Log.Info("Environment loaded",
			zap.String("environment", ev.Location),
			zap.Stringer("mapping", ev.Asset.Mapping),
			zap.Int("width", ev.Asset.Width),
			zap.Int("height", ev.Asset.Height))
	case loader.Failure:
		logger.Log.Error("Failed to load environment", zap.String("environment", ev.Location), zap.Error(ev.Err))
	}
}
