package network

import (
	"testing"
	"time"

	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/shared/gamemath"
)

func testTuning() *config.Tuning {
	cfg := config.Default()
	cfg.SendIntervalMs = 50
	cfg.CacheIntervalMs = 1000
	return cfg
}

func TestThrottleUpperBoundUnderContinuousMovement(t *testing.T) {
	cfg := testTuning()
	th := NewThrottle(cfg)

	start := time.Unix(0, 0)
	const windowMs = 1000
	const tickMs = 16 // ~60 Hz

	sends := 0
	pos := gamemath.Vec3{X: 1} // clear of the spawn point
	for ms := 0; ms < windowMs; ms += tickMs {
		pos.X += cfg.MoveSpeed
		d := th.Step(start.Add(time.Duration(ms)*time.Millisecond), pos, true)
		if d.Send {
			sends++
		}
	}

	// ceil(T / SEND_INTERVAL) + 1
	limit := windowMs/cfg.SendIntervalMs + 2
	if sends > limit {
		t.Fatalf("sent %d messages in %dms window, limit %d", sends, windowMs, limit)
	}
	if sends == 0 {
		t.Fatal("continuous movement produced no sends at all")
	}
}

func TestThrottleSilentAtSpawn(t *testing.T) {
	cfg := testTuning()
	th := NewThrottle(cfg)

	spawn := gamemath.Vec3{X: cfg.SpawnX, Y: cfg.SpawnY, Z: cfg.SpawnZ}
	now := time.Unix(0, 0)
	for i := 0; i < 100; i++ {
		now = now.Add(16 * time.Millisecond)
		if d := th.Step(now, spawn, true); d.Send {
			t.Fatal("sent a message while parked on the spawn point")
		}
	}

	// One step off spawn and it talks again.
	off := spawn.Add(gamemath.Vec3{X: 1})
	if d := th.Step(now.Add(16*time.Millisecond), off, true); !d.Send {
		t.Fatal("expected a send once clear of the spawn point")
	}
}

func TestThrottleDriftWithoutMovementFlag(t *testing.T) {
	cfg := testTuning()
	th := NewThrottle(cfg)

	now := time.Unix(0, 0)
	pos := gamemath.Vec3{X: 5, Y: 3, Z: 5}
	if d := th.Step(now, pos, true); !d.Send {
		t.Fatal("expected initial send")
	}

	// A falling player reports moved=false from input but keeps drifting in Y.
	pos.Y -= 0.5
	now = now.Add(60 * time.Millisecond)
	if d := th.Step(now, pos, false); !d.Send {
		t.Fatal("expected drift past threshold to force a send")
	}

	// Sub-threshold drift with no movement stays quiet even after the interval.
	pos.Y -= 0.001
	now = now.Add(60 * time.Millisecond)
	if d := th.Step(now, pos, false); d.Send {
		t.Fatal("sub-threshold drift should not send")
	}
}

func TestThrottleIntervalGate(t *testing.T) {
	cfg := testTuning()
	th := NewThrottle(cfg)

	now := time.Unix(0, 0)
	pos := gamemath.Vec3{X: 5}
	if d := th.Step(now, pos, true); !d.Send {
		t.Fatal("expected initial send")
	}

	// Movement inside the interval is coalesced.
	pos.X += 1
	if d := th.Step(now.Add(10*time.Millisecond), pos, true); d.Send {
		t.Fatal("send inside the interval window")
	}

	pos.X += 1
	if d := th.Step(now.Add(55*time.Millisecond), pos, true); !d.Send {
		t.Fatal("expected send once the interval elapsed")
	}
}

func TestThrottleCacheCadenceIndependentOfSends(t *testing.T) {
	cfg := testTuning()
	th := NewThrottle(cfg)

	start := time.Unix(0, 0)
	pos := gamemath.Vec3{X: 2}

	caches := 0
	for ms := 0; ms < 3000; ms += 16 {
		pos.X += cfg.MoveSpeed
		d := th.Step(start.Add(time.Duration(ms)*time.Millisecond), pos, true)
		if d.Cache {
			caches++
		}
	}

	// First write plus one per elapsed 1000ms interval, never the send rate.
	if caches < 2 || caches > 4 {
		t.Fatalf("cache writes = %d over 3s, want one per ~1000ms", caches)
	}
}
