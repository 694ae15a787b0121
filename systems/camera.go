package systems

import (
	"math"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/shared/gamemath"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
)

// Camera supplies the horizontal facing angle that resolves the movement
// basis vectors. The headless client has nothing to render, so it sweeps a
// slow eased orbit instead of tracking a mouse.
type Camera struct {
	seq *gween.Sequence
	yaw float64
}

func NewCamera() *Camera {
	seq := gween.NewSequence(
		gween.New(0, 2*math.Pi, 40, ease.InOutQuad),
		gween.New(2*math.Pi, 0, 40, ease.InOutQuad),
	)
	return &Camera{seq: seq}
}

// Yaw returns the current orbit angle, normalized.
func (c *Camera) Yaw() float64 {
	return c.yaw
}

// Advance moves the orbit by dt seconds.
func (c *Camera) Advance(dt float64) {
	v, _, done := c.seq.Update(float32(dt))
	if done {
		c.seq.Reset()
	}
	c.yaw = gamemath.NormalizeAngle(float64(v))
}

// NewCameraSystem writes the orbit yaw into the local player's input intent
// each tick, before the motion step reads it.
func NewCameraSystem(c *Camera, dt float64) func(donburi.World) {
	return func(w donburi.World) {
		c.Advance(dt)

		entry, ok := components.LocalMotion.First(w)
		if !ok || !entry.HasComponent(components.InputIntent) {
			return
		}
		components.InputIntent.Get(entry).CameraYaw = c.yaw
	}
}
