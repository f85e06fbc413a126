package behaviour

import (
	"math"

	"Tilt3D/internal/logger"
	"Tilt3D/internal/renderer"
	"Tilt3D/internal/tween"

	"go.uber.org/zap"
)

// DefaultRotationRange is the full swing, in radians, between the two window
// edges. A centered cursor maps to zero rotation.
const DefaultRotationRange = float32(math.Pi * 0.2)

// OrientationController tilts the loaded model toward the cursor.
type OrientationController struct {
	Model   *renderer.ModelRef
	Tweener *tween.Tweener
	Range   float32
}

func NewOrientationController(model *renderer.ModelRef, tweener *tween.Tweener) *OrientationController {
	return &OrientationController{
		Model:   model,
		Tweener: tweener,
		Range:   DefaultRotationRange,
	}
}

// TargetRotation maps a cursor position inside a width x height window to
// the horizontal (rx) and vertical (ry) rotation it asks for.
func TargetRotation(x, y float64, width, height int, rotationRange float32) (rx, ry float32) {
	rx = float32(x/float64(width)-0.5) * rotationRange
	ry = float32(y/float64(height)-0.5) * rotationRange
	return rx, ry
}

// OnCursorMove retargets the model rotation. Moving the cursor horizontally
// turns the model around its Y axis, vertically around its X axis.
func (c *OrientationController) OnCursorMove(x, y float64, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	logger.Log.Debug("Cursor moved",
		zap.Float64("x", x/float64(width)),
		zap.Float64("y", y/float64(height)))

	model := c.Model.Get()
	if model == nil {
		return
	}
	rx, ry := TargetRotation(x, y, width, height, c.Range)
	c.Tweener.To(model, ry, rx)
}

func (c *OrientationController) Start() {}

// Update advances the rotation tween; it runs once per rendered frame.
func (c *OrientationController) Update(dt float32) {
	c.Tweener.Update(dt)
}
