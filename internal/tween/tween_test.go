package tween

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spinner struct {
	x, y   float32
	writes int
}

func (s *spinner) RotationXY() (float32, float32) { return s.x, s.y }

func (s *spinner) SetRotationXY(x, y float32) {
	s.x, s.y = x, y
	s.writes++
}

func TestTweenReachesDestination(t *testing.T) {
	tw := NewTweener()
	s := &spinner{}

	tw.To(s, 0.3, -0.2)
	require.Equal(t, 1, tw.Active())

	for i := 0; i < 60; i++ {
		tw.Update(1.0 / 60)
	}
	assert.InDelta(t, 0.3, s.x, 1e-4)
	assert.InDelta(t, -0.2, s.y, 1e-4)
	assert.Equal(t, 0, tw.Active())
}

func TestTweenEasesOut(t *testing.T) {
	tw := NewTweener()
	s := &spinner{}

	tw.To(s, 1, 1)
	tw.Update(tw.Duration / 2)

	// Cubic ease-out: 1-(1-0.5)^3 of the distance at half time.
	assert.InDelta(t, 0.875, s.x, 1e-3)
	assert.InDelta(t, 0.875, s.y, 1e-3)
	assert.Equal(t, 1, tw.Active())
}

func TestLatestWinsKeepsOneTweenPerTarget(t *testing.T) {
	tw := NewTweener()
	s := &spinner{}

	tw.To(s, 0.1, 0.1)
	tw.Update(0.1)
	midX, _ := s.RotationXY()

	latest := tw.To(s, -0.2, 0.25)

	require.Equal(t, 1, tw.Active())
	assert.Same(t, latest, tw.ActiveTween(s))
	x, y := tw.ActiveTween(s).Destination()
	assert.Equal(t, float32(-0.2), x)
	assert.Equal(t, float32(0.25), y)

	// The new tween starts from where the old one left the target.
	tw.Update(0)
	assert.InDelta(t, midX, s.x, 1e-5)
}

func TestTweensForDifferentTargetsRunSideBySide(t *testing.T) {
	tw := NewTweener()
	a, b := &spinner{}, &spinner{}

	tw.To(a, 1, 0)
	tw.To(b, 0, 1)
	assert.Equal(t, 2, tw.Active())

	tw.Update(tw.Duration)
	assert.InDelta(t, 1, a.x, 1e-5)
	assert.InDelta(t, 1, b.y, 1e-5)
	assert.Equal(t, 0, tw.Active())
}

func TestUpdateWithoutTweensIsNoop(t *testing.T) {
	tw := NewTweener()
	tw.Update(1)
	assert.Equal(t, 0, tw.Active())
	assert.Nil(t, tw.ActiveTween(&spinner{}))
}
