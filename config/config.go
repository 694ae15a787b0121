// Package config holds the tuning values shared by the client and the
// session server. Every component receives a *Tuning at construction and
// treats it as immutable afterwards; there are no mutable package globals.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning contains every movement, throttling, reconciliation, and anomaly
// constant. Client prediction and the server's plausibility clamp read the
// same values, so the two sides never disagree about what "too fast" means.
type Tuning struct {
	// Simulation
	TickRate int `yaml:"tickRate"` // client frame loop, ticks per second

	// Movement (world units; speeds are per tick unless noted)
	MoveSpeed    float64 `yaml:"moveSpeed"`    // horizontal speed per tick
	JumpImpulse  float64 `yaml:"jumpImpulse"`  // upward velocity applied on jump
	Gravity      float64 `yaml:"gravity"`      // vertical velocity lost per tick
	GroundY      float64 `yaml:"groundY"`      // ground plane height
	TurnFraction float64 `yaml:"turnFraction"` // fraction of the yaw gap closed per tick

	// Outbound throttle
	SendIntervalMs  int     `yaml:"sendIntervalMs"`  // minimum ms between playerMove sends
	DriftThreshold  float64 `yaml:"driftThreshold"`  // squared displacement that forces a send
	CacheIntervalMs int     `yaml:"cacheIntervalMs"` // minimum ms between position cache writes
	SpawnEpsilon    float64 `yaml:"spawnEpsilon"`    // squared radius around spawn with no sends

	// Remote reconciliation
	SnapDistance    float64 `yaml:"snapDistance"`    // 3D distance beyond which we snap, not lerp
	SnapInDistance  float64 `yaml:"snapInDistance"`  // 3D distance below which we settle exactly
	MinLerpDistance float64 `yaml:"minLerpDistance"` // below this the entity is considered idle
	BaseBlend       float64 `yaml:"baseBlend"`       // blend factor floor for short distances
	ExtrapolateMax  float64 `yaml:"extrapolateMax"`  // 3D distance above which extrapolation is off
	YawBlendMoving  float64 `yaml:"yawBlendMoving"`  // yaw follow fraction while the entity moves
	YawBlendIdle    float64 `yaml:"yawBlendIdle"`    // base yaw fraction when it does not; moving follows at 1.5x
	LivenessMs      int     `yaml:"livenessMs"`      // prune remote entries silent past this window

	// Anomaly guard
	AnomalySpeed    float64 `yaml:"anomalySpeed"`    // units/second considered implausible
	MaxStepDistance float64 `yaml:"maxStepDistance"` // raw displacement bound between samples

	// World
	WorldWidth float64 `yaml:"worldWidth"` // X extent, centered on the origin
	WorldDepth float64 `yaml:"worldDepth"` // Z extent, centered on the origin
	SpawnX     float64 `yaml:"spawnX"`
	SpawnY     float64 `yaml:"spawnY"`
	SpawnZ     float64 `yaml:"spawnZ"`
	Obstacles  []Box   `yaml:"obstacles"`
}

// Box is an axis-aligned obstacle footprint on the XZ plane.
type Box struct {
	X float64 `yaml:"x"` // min corner
	Z float64 `yaml:"z"`
	W float64 `yaml:"w"`
	D float64 `yaml:"d"`
}

// Default returns the reference tuning. MaxStepDistance tracks MoveSpeed:
// anything past two ticks of legitimate movement in one sample gets clamped.
func Default() *Tuning {
	return &Tuning{
		TickRate: 60,

		MoveSpeed:    0.1,
		JumpImpulse:  0.2,
		Gravity:      0.01,
		GroundY:      0,
		TurnFraction: 0.2,

		SendIntervalMs:  50,
		DriftThreshold:  0.01,
		CacheIntervalMs: 1000,
		SpawnEpsilon:    0.01,

		SnapDistance:    5.0,
		SnapInDistance:  0.02,
		MinLerpDistance: 0.005,
		BaseBlend:       0.4,
		ExtrapolateMax:  0.8,
		YawBlendMoving:  0.3,
		YawBlendIdle:    0.2,
		LivenessMs:      10000,

		AnomalySpeed:    1.0,
		MaxStepDistance: 0.2,

		WorldWidth: 200,
		WorldDepth: 200,
	}
}

// Load returns the default tuning overlaid with values from a YAML file.
// An empty path returns the defaults unchanged.
func Load(path string) (*Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return t, nil
}

// SnapDistanceSq returns the squared snap threshold; reconciliation compares
// it against squared 3D distance and never takes a square root first.
func (t *Tuning) SnapDistanceSq() float64 { return t.SnapDistance * t.SnapDistance }
