package systems

import (
	"math"
	"math/rand"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/yohamta/donburi"
)

// Random number generator for bot decision making.
// Uses fixed seed for deterministic replay support.
var rng = rand.New(rand.NewSource(42))

const waypointReached = 0.5

// Bot produces input intent for the local player: it wanders between random
// waypoints, expressed as the same directional flags a keyboard would
// produce, relative to the current camera yaw. Outbound traffic generated
// this way is indistinguishable from a human player's.
type Bot struct {
	cfg *config.Tuning

	waypointX   float64
	waypointZ   float64
	hasWaypoint bool
	repathTimer int
	jumpTimer   int
	idleTimer   int
}

func NewBot(cfg *config.Tuning) *Bot {
	return &Bot{cfg: cfg}
}

// NewBotSystem returns the per-tick input generator. Runs before the camera
// yaw is consumed by the motion step.
func NewBotSystem(b *Bot) func(donburi.World) {
	return func(w donburi.World) {
		entry, ok := components.LocalMotion.First(w)
		if !ok || !entry.HasComponent(components.InputIntent) || !entry.HasComponent(components.Position) {
			return
		}
		b.Step(components.InputIntent.Get(entry), components.Position.Get(entry))
	}
}

func (b *Bot) Step(in *components.InputIntentData, pos *components.PositionData) {
	in.Forward, in.Backward, in.Left, in.Right, in.Jump = false, false, false, false, false
	in.AutoMove = true

	// Occasional rest between waypoints so the wire goes quiet sometimes.
	if b.idleTimer > 0 {
		b.idleTimer--
		return
	}

	dx := b.waypointX - pos.X
	dz := b.waypointZ - pos.Z
	if !b.hasWaypoint || b.repathTimer <= 0 || math.Hypot(dx, dz) < waypointReached {
		b.pickWaypoint()
		if rng.Intn(4) == 0 {
			b.idleTimer = 60 + rng.Intn(180)
			return
		}
		dx = b.waypointX - pos.X
		dz = b.waypointZ - pos.Z
	}
	b.repathTimer--

	// Project the world-space direction onto the camera basis and press the
	// keys that best approximate it.
	sin, cos := math.Sin(in.CameraYaw), math.Cos(in.CameraYaw)
	fwd := dx*sin + dz*cos
	right := dx*cos - dz*sin

	mag := math.Hypot(fwd, right)
	if mag > 0 {
		fwd /= mag
		right /= mag
	}

	in.Forward = fwd > 0.3
	in.Backward = fwd < -0.3
	in.Right = right > 0.3
	in.Left = right < -0.3

	if b.jumpTimer > 0 {
		b.jumpTimer--
	} else {
		in.Jump = true
		b.jumpTimer = 240 + rng.Intn(600)
	}
}

func (b *Bot) pickWaypoint() {
	margin := 2.0
	halfW := b.cfg.WorldWidth/2 - margin
	halfD := b.cfg.WorldDepth/2 - margin
	b.waypointX = (rng.Float64()*2 - 1) * halfW
	b.waypointZ = (rng.Float64()*2 - 1) * halfD
	b.hasWaypoint = true
	b.repathTimer = 600 + rng.Intn(600)
}
