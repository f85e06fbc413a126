package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	closeAfter int
	ended      int
	clock      float64
	onEnd      func()
}

func (s *fakeSink) ShouldClose() bool {
	return s.closeAfter >= 0 && s.ended >= s.closeAfter
}

func (s *fakeSink) EndFrame() {
	s.ended++
	s.clock += 1.0 / 60
	if s.onEnd != nil {
		s.onEnd()
	}
}

func (s *fakeSink) Now() float64 { return s.clock }

func TestRenderLoopRendersOncePerTick(t *testing.T) {
	sink := &fakeSink{closeAfter: 5}
	chain := &sizeRecorder{}
	var dts []float32

	frames := RenderLoop(context.Background(), sink, func(dt float32) {
		dts = append(dts, dt)
		chain.Render()
	})

	assert.Equal(t, 5, frames)
	assert.Equal(t, 5, chain.renders)
	assert.Equal(t, 5, sink.ended)
	assert.Zero(t, dts[0])
	for _, dt := range dts[1:] {
		assert.InDelta(t, 1.0/60, dt, 1e-6)
	}
}

func TestRenderLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &fakeSink{closeAfter: -1}
	sink.onEnd = func() {
		if sink.ended == 3 {
			cancel()
		}
	}

	frames := RenderLoop(ctx, sink, func(float32) {})

	assert.Equal(t, 3, frames)
}

func TestRenderLoopClosedWindowRendersNothing(t *testing.T) {
	sink := &fakeSink{closeAfter: 0}
	frames := RenderLoop(context.Background(), sink, func(float32) { t.Fatal("frame called") })
	assert.Zero(t, frames)
}
