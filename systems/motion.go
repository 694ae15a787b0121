package systems

import (
	"math"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/shared/gamemath"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
)

const tagSolid = "solid"

// MovementResult reports what one motion tick changed. The send throttle
// consumes it on the same tick.
type MovementResult struct {
	PositionChanged    bool
	OrientationChanged bool
}

// LocalMotion owns the local player's authoritative motion step: input
// intent in, updated position and yaw out. Horizontal movement resolves
// against a resolv space on the XZ plane; vertical movement is the jump
// impulse / gravity integration against the ground plane.
type LocalMotion struct {
	cfg *config.Tuning

	space     *resolv.Space
	playerObj *resolv.Object
	offsetX   float64 // world origin sits at the center of the resolv space
	offsetZ   float64

	last MovementResult
}

const playerSize = 0.6

func NewLocalMotion(cfg *config.Tuning) *LocalMotion {
	return &LocalMotion{cfg: cfg}
}

// InitCollision builds the XZ collision space from the configured world
// bounds and obstacle boxes: four border walls plus one object per obstacle.
func (m *LocalMotion) InitCollision() {
	w := m.cfg.WorldWidth
	d := m.cfg.WorldDepth
	m.offsetX = w / 2
	m.offsetZ = d / 2

	// Cell size 4 keeps the broadphase grid small for field-sized worlds.
	m.space = resolv.NewSpace(int(w)+2, int(d)+2, 4, 4)

	walls := []config.Box{
		{X: -m.offsetX - 1, Z: -m.offsetZ - 1, W: w + 2, D: 1}, // north
		{X: -m.offsetX - 1, Z: m.offsetZ, W: w + 2, D: 1},      // south
		{X: -m.offsetX - 1, Z: -m.offsetZ - 1, W: 1, D: d + 2}, // west
		{X: m.offsetX, Z: -m.offsetZ - 1, W: 1, D: d + 2},      // east
	}
	for _, b := range append(walls, m.cfg.Obstacles...) {
		obj := resolv.NewObject(b.X+m.offsetX, b.Z+m.offsetZ, b.W, b.D, tagSolid)
		obj.SetShape(resolv.NewRectangle(0, 0, b.W, b.D))
		m.space.Add(obj)
	}

	m.playerObj = resolv.NewObject(
		m.cfg.SpawnX+m.offsetX-playerSize/2,
		m.cfg.SpawnZ+m.offsetZ-playerSize/2,
		playerSize, playerSize, "player")
	m.playerObj.SetShape(resolv.NewRectangle(0, 0, playerSize, playerSize))
	m.space.Add(m.playerObj)
}

// LastResult returns what the most recent tick changed.
func (m *LocalMotion) LastResult() MovementResult {
	return m.last
}

// Step advances the local player one tick. It mutates pos, rot, and motion
// in place and records the MovementResult for the throttle.
func (m *LocalMotion) Step(in components.InputIntentData, pos *components.PositionData, rot *components.RotationData, motion *components.LocalMotionData) MovementResult {
	var res MovementResult

	// Movement basis relative to the camera facing: forward along the
	// camera yaw, strafe along its right vector.
	sin, cos := math.Sin(in.CameraYaw), math.Cos(in.CameraYaw)
	var move gamemath.Vec3
	if in.Forward {
		move.X += sin
		move.Z += cos
	}
	if in.Backward {
		move.X -= sin
		move.Z -= cos
	}
	if in.Right {
		move.X += cos
		move.Z -= sin
	}
	if in.Left {
		move.X -= cos
		move.Z += sin
	}

	// Normalize before scaling: diagonal input must not exceed
	// single-direction speed.
	if move.X != 0 || move.Z != 0 {
		move = gamemath.NormalizeXZ(move).Scale(m.cfg.MoveSpeed)

		dx, dz := m.resolveHorizontal(move.X, move.Z, pos)
		if dx != 0 || dz != 0 {
			pos.X += dx
			pos.Z += dz
			res.PositionChanged = true
		}

		targetYaw := gamemath.YawFromDirection(move.X, move.Z)
		next := gamemath.RotateYawToward(rot.Yaw, targetYaw, m.cfg.TurnFraction)
		if next != rot.Yaw {
			rot.Yaw = next
			res.OrientationChanged = true
		}
	}

	// Vertical: jump impulse while grounded, then gravity integration until
	// the ground plane is crossed again.
	if in.Jump && !motion.Airborne {
		motion.Airborne = true
		motion.VerticalVel = m.cfg.JumpImpulse
	}
	if motion.Airborne {
		pos.Y += motion.VerticalVel
		motion.VerticalVel -= m.cfg.Gravity
		if pos.Y <= m.cfg.GroundY {
			pos.Y = m.cfg.GroundY
			motion.VerticalVel = 0
			motion.Airborne = false
		}
		res.PositionChanged = true
	}

	m.last = res
	return res
}

// resolveHorizontal runs the intended XZ delta through the collision space,
// one axis at a time so sliding along walls works. Without an initialized
// space it passes the delta through unchanged.
func (m *LocalMotion) resolveHorizontal(dx, dz float64, pos *components.PositionData) (float64, float64) {
	if m.playerObj == nil {
		return dx, dz
	}

	m.playerObj.X = pos.X + m.offsetX - playerSize/2
	m.playerObj.Y = pos.Z + m.offsetZ - playerSize/2
	m.playerObj.Update()

	if dx != 0 {
		if check := m.playerObj.Check(dx, 0, tagSolid); check != nil {
			if solids := check.ObjectsByTags(tagSolid); len(solids) > 0 {
				contact := check.ContactWithObject(solids[0])
				dx = contact.X()
			}
		}
		m.playerObj.X += dx
		m.playerObj.Update()
	}
	if dz != 0 {
		if check := m.playerObj.Check(0, dz, tagSolid); check != nil {
			if solids := check.ObjectsByTags(tagSolid); len(solids) > 0 {
				contact := check.ContactWithObject(solids[0])
				dz = contact.Y()
			}
		}
		m.playerObj.Y += dz
		m.playerObj.Update()
	}

	return dx, dz
}

// NewLocalMotionSystem returns the per-tick system that feeds the local
// player's input intent through the motion step. A missing local player is
// a soft no-op: the frame loop must never halt over an absent entity.
func NewLocalMotionSystem(m *LocalMotion) func(donburi.World) {
	return func(w donburi.World) {
		entry, ok := components.LocalMotion.First(w)
		if !ok {
			m.last = MovementResult{}
			return
		}
		if !entry.HasComponent(components.Position) || !entry.HasComponent(components.Rotation) || !entry.HasComponent(components.InputIntent) {
			m.last = MovementResult{}
			return
		}

		in := *components.InputIntent.Get(entry)
		pos := components.Position.Get(entry)
		rot := components.Rotation.Get(entry)
		motion := components.LocalMotion.Get(entry)

		m.Step(in, pos, rot, motion)
	}
}
