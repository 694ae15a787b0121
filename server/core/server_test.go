package core

import (
	"math"
	"testing"
	"time"

	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/shared/gamemath"
)

func testServer() *Server {
	return &Server{cfg: config.Default()}
}

func TestClampMoveRejectsImplausibleStep(t *testing.T) {
	s := testServer()
	now := time.Now()
	sess := &session{
		hasMoved:   true,
		lastMove:   gamemath.Vec3{},
		lastMoveAt: now.Add(-16 * time.Millisecond),
	}

	got := s.clampMove(sess, gamemath.Vec3{X: 10}, now)

	if math.Abs(got.X-s.cfg.MaxStepDistance) > 1e-9 {
		t.Fatalf("expected clamp to %v, got %v", s.cfg.MaxStepDistance, got.X)
	}
}

func TestClampMoveAllowsNormalStep(t *testing.T) {
	s := testServer()
	now := time.Now()
	sess := &session{
		hasMoved:   true,
		lastMove:   gamemath.Vec3{X: 1},
		lastMoveAt: now.Add(-50 * time.Millisecond),
	}

	got := s.clampMove(sess, gamemath.Vec3{X: 1.1}, now)

	if got.X != 1.1 {
		t.Fatalf("legitimate step was altered: %v", got.X)
	}
}

func TestClampMoveFirstReportUnchecked(t *testing.T) {
	s := testServer()
	sess := &session{}

	got := s.clampMove(sess, gamemath.Vec3{X: 42, Z: -13}, time.Now())

	if got.X != 42 || got.Z != -13 {
		t.Fatalf("first report should only be bounds-clamped, got %+v", got)
	}
}

func TestClampMoveWorldBounds(t *testing.T) {
	s := testServer()
	sess := &session{}

	got := s.clampMove(sess, gamemath.Vec3{X: 500, Y: -3, Z: -500}, time.Now())

	if got.X != s.cfg.WorldWidth/2 {
		t.Errorf("x not clamped to world edge: %v", got.X)
	}
	if got.Z != -s.cfg.WorldDepth/2 {
		t.Errorf("z not clamped to world edge: %v", got.Z)
	}
	if got.Y != s.cfg.GroundY {
		t.Errorf("y not clamped to ground: %v", got.Y)
	}
}

func TestInBounds(t *testing.T) {
	s := testServer()

	if !s.inBounds(gamemath.Vec3{X: 5, Y: 1, Z: 5}) {
		t.Error("interior point reported out of bounds")
	}
	if s.inBounds(gamemath.Vec3{X: 5000}) {
		t.Error("far exterior point reported in bounds")
	}
	if s.inBounds(gamemath.Vec3{Y: -1}) {
		t.Error("below-ground point reported in bounds")
	}
}
