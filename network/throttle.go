package network

import (
	"time"

	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/shared/gamemath"
)

// Throttle decides, once per tick, whether the local position is worth
// transmitting. It coalesces many simulation ticks into the coarser wire
// cadence while still reporting drift (falling, sliding) that happens
// without fresh input. Position caching for reconnect recovery rides the
// same decision at its own, coarser interval.
type Throttle struct {
	cfg *config.Tuning

	lastSent   gamemath.Vec3
	lastSendAt time.Time
	hasSent    bool

	lastCached  gamemath.Vec3
	lastCacheAt time.Time
	hasCached   bool
}

// Decision reports what to do with the current tick's position.
type Decision struct {
	Send  bool
	Cache bool
}

func NewThrottle(cfg *config.Tuning) *Throttle {
	return &Throttle{cfg: cfg}
}

// Step evaluates the throttle for one tick. moved is the motion producer's
// report of whether position changed this tick.
//
// A send requires the interval to have elapsed AND either fresh movement or
// accumulated squared drift past the threshold. While the position still
// sits on the spawn point nothing is sent at all: the wire stays quiet
// until the player has actually done something.
func (t *Throttle) Step(now time.Time, pos gamemath.Vec3, moved bool) Decision {
	var d Decision

	spawn := gamemath.Vec3{X: t.cfg.SpawnX, Y: t.cfg.SpawnY, Z: t.cfg.SpawnZ}
	atSpawn := gamemath.DistSq(pos, spawn) <= t.cfg.SpawnEpsilon

	if !atSpawn {
		interval := time.Duration(t.cfg.SendIntervalMs) * time.Millisecond
		intervalElapsed := !t.hasSent || now.Sub(t.lastSendAt) >= interval
		driftSq := gamemath.DistSq(pos, t.lastSent)
		if intervalElapsed && (moved || driftSq > t.cfg.DriftThreshold) {
			d.Send = true
			t.lastSent = pos
			t.lastSendAt = now
			t.hasSent = true
		}
	}

	cacheInterval := time.Duration(t.cfg.CacheIntervalMs) * time.Millisecond
	if (!t.hasCached || now.Sub(t.lastCacheAt) >= cacheInterval) && pos != t.lastCached {
		d.Cache = true
		t.lastCached = pos
		t.lastCacheAt = now
		t.hasCached = true
	}

	return d
}

// LastSent returns the position most recently approved for transmission.
func (t *Throttle) LastSent() (gamemath.Vec3, bool) {
	return t.lastSent, t.hasSent
}
