package systems

import (
	"log"
	"math"
	"time"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/network"
	"github.com/caldern/emberfield-mp/shared/gamemath"
	"github.com/caldern/emberfield-mp/shared/messages"
	"github.com/caldern/emberfield-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
	"github.com/yohamta/donburi"
)

// Blend factor bands for reconciliation, selected on horizontal (XZ)
// distance. The discrete steps favor fast visual catch-up over physical
// realism at large error; the exact boundaries are part of the protocol's
// observable behavior and are not tunable.
const (
	bandFarDistance  = 3.0
	bandFarBlend     = 0.8
	bandMidDistance  = 1.0
	bandMidBlend     = 0.6
	bandNearDistance = 0.5
	bandNearBlend    = 0.5
)

// departedGrace is how long a removed entity id keeps suppressing lazy
// creation, so a stale playerMoved trailing a playerLeft cannot resurrect it.
const departedGrace = 5 * time.Second

// NetEventSource is the inbound surface NetSync consumes each tick.
// *network.Client implements it.
type NetEventSource interface {
	Generation() uint64
	NetworkID() esync.NetworkId
	DrainJoined() []messages.PlayerJoined
	DrainLeft() []messages.PlayerLeft
	DrainMoved() []messages.PlayerMoved
	LatestSnapshot() *esync.WorldSnapshot
}

var _ NetEventSource = (*network.Client)(nil)

// NetSync owns the inbound half of position synchronization: it drains the
// client's event queues at the start of each tick (the only place remote
// entity state is structurally modified), applies snapshot targets, and then
// reconciles every remote entity's rendered position toward its target.
type NetSync struct {
	cfg    *config.Tuning
	client NetEventSource

	lastGeneration uint64
	departed       map[esync.NetworkId]time.Time
}

func NewNetSync(cfg *config.Tuning, client NetEventSource) *NetSync {
	return &NetSync{
		cfg:      cfg,
		client:   client,
		departed: make(map[esync.NetworkId]time.Time),
	}
}

// NewNetSyncSystem returns the per-tick reconciliation system.
func NewNetSyncSystem(ns *NetSync) func(donburi.World) {
	return func(w donburi.World) {
		ns.Tick(w, time.Now())
	}
}

// Tick runs one full inbound pass: lifecycle, target intake, metadata,
// pruning, then reconciliation.
func (ns *NetSync) Tick(w donburi.World, now time.Time) {
	// A new session generation means everything tracked belongs to a dead
	// connection. Clear before applying anything from the new one.
	if gen := ns.client.Generation(); gen != ns.lastGeneration {
		ns.lastGeneration = gen
		ns.clearRemotes(w)
	}

	localID := ns.client.NetworkID()

	for _, joined := range ns.client.DrainJoined() {
		if joined.PlayerID == localID {
			continue
		}
		delete(ns.departed, joined.PlayerID)
		entry := ns.findOrCreate(w, joined.PlayerID)
		components.Position.SetValue(entry, components.PositionData{
			X: joined.Position.X, Y: joined.Position.Y, Z: joined.Position.Z,
		})
		components.Rotation.SetValue(entry, components.RotationData{Yaw: joined.RotationY})
		sync := components.RemoteSync.Get(entry)
		sync.HasTarget = true
		sync.TargetX, sync.TargetY, sync.TargetZ = joined.Position.X, joined.Position.Y, joined.Position.Z
		sync.TargetYaw, sync.HasTargetYaw = joined.RotationY, true
		sync.LastSnapshotAt = now
		log.Printf("[netsync] player %d (%s) joined at (%.1f, %.1f, %.1f)",
			joined.PlayerID, joined.PlayerName, joined.Position.X, joined.Position.Y, joined.Position.Z)
	}

	for _, moved := range ns.client.DrainMoved() {
		if moved.PlayerID == localID {
			continue
		}
		ns.applySnapshot(w, moved, now)
	}

	for _, left := range ns.client.DrainLeft() {
		if left.PlayerID == localID {
			continue
		}
		ns.departed[left.PlayerID] = now
		entity := esync.FindByNetworkId(w, left.PlayerID)
		if w.Valid(entity) {
			w.Entry(entity).Remove()
			log.Printf("[netsync] player %d left", left.PlayerID)
		}
	}

	ns.applyMetadata(w, localID)
	ns.pruneOrphans(w, now)
	ns.pruneDeparted(now)

	// Reconciliation pass. Entities that never received a transform are
	// excluded entirely rather than treated as idle at the origin.
	components.RemoteSync.Each(w, func(entry *donburi.Entry) {
		sync := components.RemoteSync.Get(entry)
		if !sync.HasTarget {
			return
		}
		pos := components.Position.Get(entry)
		rot := components.Rotation.Get(entry)
		reconcileStep(ns.cfg, pos, rot, sync, now)
	})
}

// applySnapshot routes one playerMoved into the entity's target fields.
// Unknown ids are created lazily (the snapshot may have raced its
// playerJoined), unless the id departed recently.
func (ns *NetSync) applySnapshot(w donburi.World, moved messages.PlayerMoved, now time.Time) {
	if _, gone := ns.departed[moved.PlayerID]; gone {
		return
	}

	entity := esync.FindByNetworkId(w, moved.PlayerID)
	var entry *donburi.Entry
	fresh := false
	if w.Valid(entity) {
		entry = w.Entry(entity)
		if !entry.HasComponent(components.RemoteSync) {
			// Metadata-only entity seen before its first transform.
			entry.AddComponent(components.RemoteSync)
			entry.AddComponent(components.Position)
			entry.AddComponent(components.Rotation)
			fresh = true
		}
	} else {
		entry = ns.findOrCreate(w, moved.PlayerID)
		fresh = true
	}

	sync := components.RemoteSync.Get(entry)
	fresh = fresh || !sync.HasTarget

	sync.HasTarget = true
	sync.TargetX, sync.TargetY, sync.TargetZ = moved.Position.X, moved.Position.Y, moved.Position.Z
	if moved.HasRotation {
		sync.TargetYaw = moved.Rotation.Y // full Euler on the wire, only yaw is used
		sync.HasTargetYaw = true
	}
	if moved.HasVelocity {
		sync.VelX, sync.VelY, sync.VelZ = moved.Velocity.X, moved.Velocity.Y, moved.Velocity.Z
		sync.HasVel = true
		sync.ServerVel = true
	}
	sync.LastSnapshotAt = now

	if fresh {
		// First transform for this entity: render it there directly, there
		// is nothing sensible to interpolate from.
		components.Position.SetValue(entry, components.PositionData{
			X: moved.Position.X, Y: moved.Position.Y, Z: moved.Position.Z,
		})
		if moved.HasRotation {
			components.Rotation.SetValue(entry, components.RotationData{Yaw: moved.Rotation.Y})
		}
	}
}

// applyMetadata drains the latest esync snapshot and applies player state
// (name, level, xp, health) to the matching entities.
func (ns *NetSync) applyMetadata(w donburi.World, localID esync.NetworkId) {
	snap := ns.client.LatestSnapshot()
	if snap == nil {
		return
	}

	for _, ent := range *snap {
		if _, gone := ns.departed[ent.Id]; gone {
			continue
		}
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				continue
			}
			state, ok := instance.(netcomponents.NetPlayerStateData)
			if !ok {
				continue
			}

			entity := esync.FindByNetworkId(w, ent.Id)
			var entry *donburi.Entry
			if w.Valid(entity) {
				entry = w.Entry(entity)
				if !entry.HasComponent(netcomponents.NetPlayerState) {
					entry.AddComponent(netcomponents.NetPlayerState)
				}
			} else {
				// Metadata can precede the first transform; such entities
				// stay out of the reconciliation pass until one arrives.
				e := w.Create(netcomponents.NetPlayerState)
				entry = w.Entry(e)
				entry.AddComponent(esync.NetworkIdComponent)
				esync.NetworkIdComponent.SetValue(entry, ent.Id)
			}

			state.IsLocal = ent.Id == localID
			netcomponents.NetPlayerState.SetValue(entry, state)
		}
	}
}

// findOrCreate returns the entity for a network id, building a full remote
// entity (transform + sync state) when none exists.
func (ns *NetSync) findOrCreate(w donburi.World, id esync.NetworkId) *donburi.Entry {
	entity := esync.FindByNetworkId(w, id)
	if w.Valid(entity) {
		entry := w.Entry(entity)
		if !entry.HasComponent(components.RemoteSync) {
			entry.AddComponent(components.RemoteSync)
			entry.AddComponent(components.Position)
			entry.AddComponent(components.Rotation)
		}
		return entry
	}

	e := w.Create(components.Position, components.Rotation, components.RemoteSync)
	entry := w.Entry(e)
	entry.AddComponent(esync.NetworkIdComponent)
	esync.NetworkIdComponent.SetValue(entry, id)
	return entry
}

// clearRemotes drops every tracked remote entity. Runs synchronously on
// reconnect, before any snapshot from the new session is applied.
func (ns *NetSync) clearRemotes(w donburi.World) {
	var stale []*donburi.Entry
	components.RemoteSync.Each(w, func(entry *donburi.Entry) {
		stale = append(stale, entry)
	})
	for _, entry := range stale {
		entry.Remove()
	}
	clear(ns.departed)
	if len(stale) > 0 {
		log.Printf("[netsync] cleared %d remote entities for new session", len(stale))
	}
}

// pruneOrphans removes remote entries that have not seen a snapshot inside
// the liveness window; their playerLeft was lost or never sent.
func (ns *NetSync) pruneOrphans(w donburi.World, now time.Time) {
	window := time.Duration(ns.cfg.LivenessMs) * time.Millisecond
	var orphans []*donburi.Entry
	components.RemoteSync.Each(w, func(entry *donburi.Entry) {
		sync := components.RemoteSync.Get(entry)
		if now.Sub(sync.LastSnapshotAt) > window {
			orphans = append(orphans, entry)
		}
	})
	for _, entry := range orphans {
		if id := esync.GetNetworkId(entry); id != nil {
			log.Printf("[netsync] pruning orphaned player %d (silent past liveness window)", *id)
			ns.departed[*id] = now
		}
		entry.Remove()
	}
}

func (ns *NetSync) pruneDeparted(now time.Time) {
	for id, at := range ns.departed {
		if now.Sub(at) > departedGrace {
			delete(ns.departed, id)
		}
	}
}

// reconcileStep moves one entity's rendered transform toward its target:
// snap for large discontinuities, distance-banded lerp otherwise, with a
// bounded extrapolation term between snapshots and a snap-in floor that
// guarantees exact convergence instead of an infinite asymptote.
//
// The snap checks use full 3D distance; blend band selection uses
// horizontal XZ distance.
func reconcileStep(cfg *config.Tuning, pos *components.PositionData, rot *components.RotationData, sync *components.RemoteSyncData, now time.Time) {
	target := gamemath.Vec3{X: sync.TargetX, Y: sync.TargetY, Z: sync.TargetZ}
	cur := gamemath.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
	delta := target.Sub(cur)
	distSq := delta.LengthSq()

	if distSq >= cfg.SnapDistanceSq() {
		// Teleport, respawn, or deep lag catchup: smoothing would look wrong.
		pos.X, pos.Y, pos.Z = target.X, target.Y, target.Z
		if sync.HasTargetYaw {
			rot.Yaw = sync.TargetYaw
		}
		finishStep(pos, sync, now)
		return
	}

	dist := math.Sqrt(distSq)
	if dist > cfg.MinLerpDistance {
		distXZ := math.Hypot(delta.X, delta.Z)
		factor := blendFactor(cfg, distXZ)

		moveX := delta.X * factor
		moveY := delta.Y * factor
		moveZ := delta.Z * factor

		// Short-horizon latency compensation, suppressed at larger error so
		// it cannot compound the correction already in flight.
		if sync.HasVel && dist < cfg.ExtrapolateMax {
			dtSnap := now.Sub(sync.LastSnapshotAt).Seconds()
			if dtSnap > 0 {
				scale := dtSnap * math.Min(0.3, dtSnap*0.6)
				moveX += sync.VelX * scale
				moveY += sync.VelY * scale
				moveZ += sync.VelZ * scale
			}
		}

		// Never step past the target on any axis, and never step away from
		// it: a stale server velocity pointing the wrong way must not grow
		// the remaining distance.
		moveX = clampMagnitude(moveX, delta.X)
		moveY = clampMagnitude(moveY, delta.Y)
		moveZ = clampMagnitude(moveZ, delta.Z)

		pos.X += moveX
		pos.Y += moveY
		pos.Z += moveZ

		moving := distXZ > cfg.SnapInDistance
		if sync.HasTargetYaw {
			blend := cfg.YawBlendIdle
			if moving {
				blend = cfg.YawBlendMoving
			}
			rot.Yaw = gamemath.RotateYawToward(rot.Yaw, sync.TargetYaw, blend)
		} else if moveX != 0 || moveZ != 0 {
			rot.Yaw = gamemath.YawFromDirection(moveX, moveZ)
		}

		// Settle exactly once close enough, otherwise the lerp approaches
		// the target forever.
		after := gamemath.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
		if gamemath.DistSq(after, target) < cfg.SnapInDistance*cfg.SnapInDistance {
			pos.X, pos.Y, pos.Z = target.X, target.Y, target.Z
		}
	}

	finishStep(pos, sync, now)
}

// finishStep derives a fallback velocity from the rendered movement when the
// server did not supply one, and records this tick's rendered sample.
func finishStep(pos *components.PositionData, sync *components.RemoteSyncData, now time.Time) {
	if sync.HasPrev && !sync.ServerVel {
		dt := now.Sub(sync.PrevAt).Seconds()
		if dt > 0 {
			sync.VelX = (pos.X - sync.PrevX) / dt
			sync.VelY = (pos.Y - sync.PrevY) / dt
			sync.VelZ = (pos.Z - sync.PrevZ) / dt
			sync.HasVel = true
		}
	}
	sync.PrevX, sync.PrevY, sync.PrevZ = pos.X, pos.Y, pos.Z
	sync.PrevAt = now
	sync.HasPrev = true
}

// blendFactor selects the per-tick blend from the distance bands, falling
// back to a distance-proportional factor below the lowest band.
func blendFactor(cfg *config.Tuning, distXZ float64) float64 {
	switch {
	case distXZ > bandFarDistance:
		return bandFarBlend
	case distXZ > bandMidDistance:
		return bandMidBlend
	case distXZ > bandNearDistance:
		return bandNearBlend
	}
	f := cfg.BaseBlend * (1 + math.Min(1, distXZ*0.9)*5)
	return gamemath.Clamp(f, 0, 1)
}

func clampMagnitude(v, limit float64) float64 {
	if limit > 0 {
		return math.Min(math.Max(v, 0), limit)
	}
	if limit < 0 {
		return math.Max(math.Min(v, 0), limit)
	}
	return 0
}
