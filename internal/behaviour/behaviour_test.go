package behaviour

import (
	"math"
	"testing"

	"Tilt3D/internal/renderer"
	"Tilt3D/internal/tween"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBehaviour struct {
	starts  int
	updates []float32
}

func (b *countingBehaviour) Start()            { b.starts++ }
func (b *countingBehaviour) Update(dt float32) { b.updates = append(b.updates, dt) }

func TestBehaviourManagerStartsOnce(t *testing.T) {
	m := NewBehaviourManager()
	b := &countingBehaviour{}
	m.Add(b)

	m.UpdateAll(0.016)
	m.UpdateAll(0.017)

	assert.Equal(t, 1, b.starts)
	assert.Equal(t, []float32{0.016, 0.017}, b.updates)
}

func TestBehaviourManagerRemoveKeepsOrder(t *testing.T) {
	m := NewBehaviourManager()
	a, b, c := &countingBehaviour{}, &countingBehaviour{}, &countingBehaviour{}
	m.Add(a)
	m.Add(b)
	m.Add(c)

	m.Remove(b)
	require.Equal(t, 2, m.Len())
	assert.Same(t, a, m.behaviours[0].Behaviour)
	assert.Same(t, c, m.behaviours[1].Behaviour)

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestTargetRotationStaysInRange(t *testing.T) {
	limit := math.Pi * 0.1
	sizes := [][2]int{{1280, 720}, {1, 1}, {333, 999}}
	for _, size := range sizes {
		w, h := size[0], size[1]
		for _, frac := range []float64{0, 0.1, 0.5, 0.77, 1} {
			rx, ry := TargetRotation(frac*float64(w), frac*float64(h), w, h, DefaultRotationRange)
			assert.LessOrEqual(t, math.Abs(float64(rx)), limit+1e-6)
			assert.LessOrEqual(t, math.Abs(float64(ry)), limit+1e-6)
		}
	}
}

func TestTargetRotationCorners(t *testing.T) {
	rx, ry := TargetRotation(640, 360, 1280, 720, DefaultRotationRange)
	assert.Zero(t, rx)
	assert.Zero(t, ry)

	rx, ry = TargetRotation(0, 720, 1280, 720, DefaultRotationRange)
	assert.InDelta(t, -math.Pi*0.1, rx, 1e-6)
	assert.InDelta(t, math.Pi*0.1, ry, 1e-6)
}

func TestCursorMoveWithoutModelDoesNothing(t *testing.T) {
	ref := &renderer.ModelRef{}
	tw := tween.NewTweener()
	c := NewOrientationController(ref, tw)

	c.OnCursorMove(100, 100, 1280, 720)
	c.Update(0.5)

	assert.Equal(t, 0, tw.Active())
	assert.False(t, ref.Present())
}

func TestCursorMoveTweensModelTowardCursor(t *testing.T) {
	ref := &renderer.ModelRef{}
	model := renderer.NewNode("helmet")
	require.True(t, ref.Set(model))
	tw := tween.NewTweener()
	c := NewOrientationController(ref, tw)

	c.OnCursorMove(1280, 0, 1280, 720)

	require.Equal(t, 1, tw.Active())
	x, y := tw.ActiveTween(model).Destination()
	assert.InDelta(t, -math.Pi*0.1, x, 1e-6, "vertical cursor drives X rotation")
	assert.InDelta(t, math.Pi*0.1, y, 1e-6, "horizontal cursor drives Y rotation")

	c.Update(tween.DefaultDuration)
	gotX, gotY := model.RotationXY()
	assert.InDelta(t, x, gotX, 1e-6)
	assert.InDelta(t, y, gotY, 1e-6)
}

func TestRapidCursorMovesKeepOneTween(t *testing.T) {
	ref := &renderer.ModelRef{}
	model := renderer.NewNode("helmet")
	ref.Set(model)
	tw := tween.NewTweener()
	c := NewOrientationController(ref, tw)

	c.OnCursorMove(0, 0, 1000, 1000)
	c.OnCursorMove(750, 250, 1000, 1000)

	require.Equal(t, 1, tw.Active())
	x, y := tw.ActiveTween(model).Destination()
	wantRx, wantRy := TargetRotation(750, 250, 1000, 1000, DefaultRotationRange)
	assert.Equal(t, wantRy, x)
	assert.Equal(t, wantRx, y)
}

func TestCursorMoveOnZeroSizedWindowIsIgnored(t *testing.T) {
	ref := &renderer.ModelRef{}
	ref.Set(renderer.NewNode("helmet"))
	tw := tween.NewTweener()

	NewOrientationController(ref, tw).OnCursorMove(10, 10, 0, 0)
	assert.Equal(t, 0, tw.Active())
}
