package systems

import (
	"log"
	"math"
	"time"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/shared/gamemath"
	"github.com/yohamta/donburi"
)

// AnomalyGuard watches the local player's own recent horizontal positions
// and clamps implausible displacement between consecutive samples. It is a
// cosmetic client-side correction for lag spikes and runaway input, not a
// security boundary; the server validates independently.
type AnomalyGuard struct {
	cfg *config.Tuning
}

func NewAnomalyGuard(cfg *config.Tuning) *AnomalyGuard {
	return &AnomalyGuard{cfg: cfg}
}

// NewAnomalyGuardSystem returns the per-tick system. Runs after motion and
// reconciliation so it sees the final position for the frame.
func NewAnomalyGuardSystem(g *AnomalyGuard) func(donburi.World) {
	return func(w donburi.World) {
		g.Tick(w, time.Now())
	}
}

func (g *AnomalyGuard) Tick(w donburi.World, now time.Time) {
	entry, ok := components.LocalMotion.First(w)
	if !ok || !entry.HasComponent(components.Position) {
		return
	}
	if !entry.HasComponent(components.PositionHistory) {
		entry.AddComponent(components.PositionHistory)
	}

	pos := components.Position.Get(entry)
	hist := components.PositionHistory.Get(entry)

	sample := components.HistorySample{X: pos.X, Z: pos.Z, Time: now.UnixMilli()}
	if hist.Len() == 0 {
		hist.Push(sample)
		return
	}
	prev := hist.At(0)
	hist.Push(sample)

	dt := float64(sample.Time-prev.Time) / 1000.0
	if dt <= 0 {
		return
	}

	dx := sample.X - prev.X
	dz := sample.Z - prev.Z
	dist := math.Hypot(dx, dz)
	speed := dist / dt

	if speed <= g.cfg.AnomalySpeed || dist <= g.cfg.MaxStepDistance {
		return
	}

	// Pull the sample back to the furthest plausible point along the actual
	// movement direction, then keep it inside the world.
	scale := g.cfg.MaxStepDistance / dist
	cx := prev.X + dx*scale
	cz := prev.Z + dz*scale
	cx = gamemath.Clamp(cx, -g.cfg.WorldWidth/2, g.cfg.WorldWidth/2)
	cz = gamemath.Clamp(cz, -g.cfg.WorldDepth/2, g.cfg.WorldDepth/2)

	log.Printf("[anomaly] clamped displacement of %.2f units at %.1f u/s to (%.2f, %.2f)",
		dist, speed, cx, cz)

	pos.X, pos.Z = cx, cz
	hist.ReplaceNewest(components.HistorySample{X: cx, Z: cz, Time: sample.Time})
}
