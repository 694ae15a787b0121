package systems

import (
	"log"
	"time"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/network"
	"github.com/caldern/emberfield-mp/shared/gamemath"
	"github.com/caldern/emberfield-mp/shared/messages"
	"github.com/yohamta/donburi"
)

// MoveSender is the outbound surface NetSend needs. *network.Client
// implements it.
type MoveSender interface {
	SendMessage(msg any) error
	ReconnectToken() string
}

var _ MoveSender = (*network.Client)(nil)

// NetSend runs after the motion step each tick and pushes the local position
// through the transmission throttle. Sends are fire-and-forget: a failed
// write is logged and the loop moves on, the next snapshot supersedes it.
type NetSend struct {
	cfg      *config.Tuning
	throttle *network.Throttle
	sender   MoveSender
	motion   *LocalMotion

	// savePosition is the reconnect-recovery cache write, invoked on the
	// throttle's coarse cache cadence. Swappable for tests.
	savePosition func(SavedPosition) error
}

func NewNetSend(cfg *config.Tuning, sender MoveSender, motion *LocalMotion) *NetSend {
	return &NetSend{
		cfg:          cfg,
		throttle:     network.NewThrottle(cfg),
		sender:       sender,
		motion:       motion,
		savePosition: SaveLastPosition,
	}
}

// NewNetSendSystem returns the per-tick outbound system.
func NewNetSendSystem(ns *NetSend) func(donburi.World) {
	return func(w donburi.World) {
		ns.Tick(w, time.Now())
	}
}

func (ns *NetSend) Tick(w donburi.World, now time.Time) {
	entry, ok := components.LocalMotion.First(w)
	if !ok || !entry.HasComponent(components.Position) {
		return
	}

	pos := components.Position.Get(entry)
	result := ns.motion.LastResult()

	cur := gamemath.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
	decision := ns.throttle.Step(now, cur, result.PositionChanged)

	if decision.Send {
		msg := messages.PlayerMove{
			X:         pos.X,
			Y:         pos.Y,
			Z:         pos.Z,
			Timestamp: now.UnixMilli(),
		}
		if entry.HasComponent(components.Rotation) {
			msg.RotationY = components.Rotation.Get(entry).Yaw
			msg.HasRotation = true
		}
		if entry.HasComponent(components.InputIntent) {
			msg.IsAutoMove = components.InputIntent.Get(entry).AutoMove
		}
		if err := ns.sender.SendMessage(msg); err != nil {
			log.Printf("[netsend] send failed: %v", err)
		}
	}

	if decision.Cache {
		saved := SavedPosition{
			X: pos.X, Y: pos.Y, Z: pos.Z,
			Token: ns.sender.ReconnectToken(),
		}
		if err := ns.savePosition(saved); err != nil {
			log.Printf("[netsend] position cache write failed: %v", err)
		}
	}
}
