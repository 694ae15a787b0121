package systems

import (
	"math"
	"testing"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/yohamta/donburi"
)

func stepInput(in components.InputIntentData) (components.PositionData, components.RotationData, components.LocalMotionData, MovementResult) {
	m := NewLocalMotion(config.Default())
	var pos components.PositionData
	var rot components.RotationData
	var motion components.LocalMotionData
	res := m.Step(in, &pos, &rot, &motion)
	return pos, rot, motion, res
}

func TestDiagonalSpeedInvariant(t *testing.T) {
	cfg := config.Default()
	combos := []components.InputIntentData{
		{Forward: true},
		{Backward: true},
		{Left: true},
		{Right: true},
		{Forward: true, Right: true},
		{Forward: true, Left: true},
		{Backward: true, Right: true},
		{Backward: true, Left: true},
	}

	for _, camYaw := range []float64{0, 0.7, -2.1} {
		for _, in := range combos {
			in.CameraYaw = camYaw
			pos, _, _, res := stepInput(in)
			disp := math.Hypot(pos.X, pos.Z)
			if math.Abs(disp-cfg.MoveSpeed) > 1e-12 {
				t.Fatalf("input %+v at camera yaw %v moved %v, want exactly %v",
					in, camYaw, disp, cfg.MoveSpeed)
			}
			if !res.PositionChanged {
				t.Fatalf("input %+v did not report positionChanged", in)
			}
		}
	}
}

func TestOpposingKeysCancel(t *testing.T) {
	pos, _, _, res := stepInput(components.InputIntentData{Forward: true, Backward: true})
	if pos.X != 0 || pos.Z != 0 {
		t.Fatalf("opposing keys moved the player: %+v", pos)
	}
	if res.PositionChanged {
		t.Fatal("opposing keys should not report movement")
	}
}

func TestJumpAndGravityCycle(t *testing.T) {
	cfg := config.Default()
	m := NewLocalMotion(cfg)
	var pos components.PositionData
	var rot components.RotationData
	var motion components.LocalMotionData

	res := m.Step(components.InputIntentData{Jump: true}, &pos, &rot, &motion)
	if !motion.Airborne {
		t.Fatal("jump while grounded should set airborne")
	}
	if !res.PositionChanged {
		t.Fatal("airborne tick must report positionChanged even with no directional input")
	}
	if pos.Y != cfg.JumpImpulse {
		t.Fatalf("first airborne tick y = %v, want %v", pos.Y, cfg.JumpImpulse)
	}

	// Holding jump mid-air must not re-trigger; integrate until landing.
	ticks := 1
	for motion.Airborne {
		m.Step(components.InputIntentData{Jump: true}, &pos, &rot, &motion)
		ticks++
		if ticks > 10000 {
			t.Fatal("player never landed")
		}
	}

	if pos.Y != cfg.GroundY {
		t.Fatalf("landing clamped y to %v, want ground %v", pos.Y, cfg.GroundY)
	}
	if motion.VerticalVel != 0 {
		t.Fatalf("vertical velocity after landing = %v, want 0", motion.VerticalVel)
	}

	// Grounded, no input: nothing changes.
	res = m.Step(components.InputIntentData{}, &pos, &rot, &motion)
	if res.PositionChanged || res.OrientationChanged {
		t.Fatalf("idle grounded tick reported changes: %+v", res)
	}
}

func TestYawEasesTowardMovement(t *testing.T) {
	cfg := config.Default()
	m := NewLocalMotion(cfg)
	var pos components.PositionData
	rot := components.RotationData{Yaw: 0}
	var motion components.LocalMotionData

	// Strafing right with camera at 0 means target yaw atan2(speed, 0) = pi/2.
	res := m.Step(components.InputIntentData{Right: true}, &pos, &rot, &motion)
	if !res.OrientationChanged {
		t.Fatal("turning movement should report orientationChanged")
	}
	want := (math.Pi / 2) * cfg.TurnFraction
	if math.Abs(rot.Yaw-want) > 1e-9 {
		t.Fatalf("yaw after one tick = %v, want fractional step %v (not an instant snap)", rot.Yaw, want)
	}

	// Repeated ticks converge on the target without overshooting.
	prev := rot.Yaw
	for i := 0; i < 200; i++ {
		m.Step(components.InputIntentData{Right: true}, &pos, &rot, &motion)
		if rot.Yaw < prev || rot.Yaw > math.Pi/2+1e-9 {
			t.Fatalf("yaw %v overshot or reversed (prev %v)", rot.Yaw, prev)
		}
		prev = rot.Yaw
	}
	if math.Abs(rot.Yaw-math.Pi/2) > 1e-3 {
		t.Fatalf("yaw did not converge: %v", rot.Yaw)
	}
}

func TestWorldBoundsStopMovement(t *testing.T) {
	cfg := config.Default()
	m := NewLocalMotion(cfg)
	m.InitCollision()

	var rot components.RotationData
	var motion components.LocalMotionData
	pos := components.PositionData{X: 0, Z: 0}

	// March east far past the border wall.
	steps := int(cfg.WorldWidth) * 20
	for i := 0; i < steps; i++ {
		m.Step(components.InputIntentData{Right: true}, &pos, &rot, &motion)
	}

	if pos.X > cfg.WorldWidth/2 {
		t.Fatalf("player escaped the world: x = %v, bound %v", pos.X, cfg.WorldWidth/2)
	}
}

func TestMotionSystemNoLocalPlayerIsNoop(t *testing.T) {
	m := NewLocalMotion(config.Default())
	m.last = MovementResult{PositionChanged: true}

	w := donburi.NewWorld()
	NewLocalMotionSystem(m)(w) // must not panic

	if m.LastResult().PositionChanged {
		t.Fatal("missing local player should report no change")
	}
}
