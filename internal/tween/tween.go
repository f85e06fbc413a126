// Package tween animates node rotations over a fixed duration.
package tween

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Policy decides what happens when a target that is already animating
// receives a new destination.
type Policy int

const (
	// LatestWins replaces the in-flight tween with one that starts from the
	// current interpolated value and ends at the newest destination.
	LatestWins Policy = iota
)

const DefaultDuration float32 = 0.9

// Target is anything exposing a two-axis rotation in radians.
type Target interface {
	RotationXY() (x, y float32)
	SetRotationXY(x, y float32)
}

// Rotation interpolates both axes of one target.
type Rotation struct {
	target   Target
	x, y     *gween.Tween
	toX, toY float32
	done     bool
}

// Destination returns the rotation the tween is heading for.
func (r *Rotation) Destination() (x, y float32) {
	return r.toX, r.toY
}

func (r *Rotation) Done() bool {
	return r.done
}

func (r *Rotation) update(dt float32) {
	x, doneX := r.x.Update(dt)
	y, doneY := r.y.Update(dt)
	r.target.SetRotationXY(x, y)
	r.done = doneX && doneY
}

// Tweener owns every running Rotation. It is not safe for concurrent use;
// To and Update are called from the render thread.
type Tweener struct {
	Policy   Policy
	Duration float32
	Ease     ease.TweenFunc

	active map[Target]*Rotation
	order  []Target
}

func NewTweener() *Tweener {
	return &Tweener{
		Policy:   LatestWins,
		Duration: DefaultDuration,
		Ease:     ease.OutCubic,
		active:   make(map[Target]*Rotation),
	}
}

// To starts animating target toward (x, y) from its current rotation.
func (t *Tweener) To(target Target, x, y float32) *Rotation {
	fromX, fromY := target.RotationXY()
	r := &Rotation{
		target: target,
		x:      gween.New(fromX, x, t.Duration, t.Ease),
		y:      gween.New(fromY, y, t.Duration, t.Ease),
		toX:    x,
		toY:    y,
	}

	switch t.Policy {
	case LatestWins:
		if _, running := t.active[target]; !running {
			t.order = append(t.order, target)
		}
		t.active[target] = r
	}
	return r
}

// Update advances every tween by dt seconds, writes the interpolated values
// to the targets and forgets tweens that reached their destination.
func (t *Tweener) Update(dt float32) {
	if len(t.order) == 0 {
		return
	}
	kept := t.order[:0]
	for _, target := range t.order {
		r := t.active[target]
		r.update(dt)
		if r.done {
			delete(t.active, target)
			continue
		}
		kept = append(kept, target)
	}
	t.order = kept
}

// Active returns the number of in-flight tweens.
func (t *Tweener) Active() int {
	return len(t.active)
}

// ActiveTween returns the in-flight tween for target, or nil.
func (t *Tweener) ActiveTween(target Target) *Rotation {
	return t.active[target]
}
