package engine

import (
	"context"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// FrameSink is the display the loop paces itself against.
type FrameSink interface {
	ShouldClose() bool
	// EndFrame presents the frame and blocks until the next refresh tick.
	EndFrame()
	// Now returns a monotonic time in seconds.
	Now() float64
}

// RenderLoop calls frame once per tick with the seconds elapsed since the
// previous one. It returns the number of frames rendered once ctx is done or
// the sink asks to close.
func RenderLoop(ctx context.Context, sink FrameSink, frame func(dt float32)) int {
	frames := 0
	last := sink.Now()
	for ctx.Err() == nil && !sink.ShouldClose() {
		now := sink.Now()
		dt := float32(now - last)
		last = now

		frame(dt)
		frames++
		sink.EndFrame()
	}
	return frames
}

// glfwSink presents through a window with vsync enabled.
type glfwSink struct {
	window *glfw.Window
}

func (s glfwSink) ShouldClose() bool {
	return s.window.ShouldClose()
}

func (s glfwSink) EndFrame() {
	s.window.SwapBuffers()
	glfw.PollEvents()
}

func (s glfwSink) Now() float64 {
	return glfw.GetTime()
}
