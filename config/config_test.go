package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultReferenceValues(t *testing.T) {
	cfg := Default()

	if cfg.SnapDistance != 5.0 {
		t.Fatalf("snap distance = %v, want 5.0", cfg.SnapDistance)
	}
	if cfg.SnapDistanceSq() != 25.0 {
		t.Fatalf("snap distance sq = %v, want 25.0", cfg.SnapDistanceSq())
	}
	if cfg.MaxStepDistance != 2*cfg.MoveSpeed {
		t.Fatalf("max step distance %v should be twice the move speed %v", cfg.MaxStepDistance, cfg.MoveSpeed)
	}
	if cfg.SendIntervalMs < 20 || cfg.SendIntervalMs > 100 {
		t.Fatalf("send interval %dms outside the supported 20-100ms range", cfg.SendIntervalMs)
	}
	if cfg.YawBlendMoving != 1.5*cfg.YawBlendIdle {
		t.Fatalf("moving yaw follow %v should be 1.5x the idle rate %v", cfg.YawBlendMoving, cfg.YawBlendIdle)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "moveSpeed: 0.25\nsendIntervalMs: 100\nobstacles:\n  - {x: 10, z: 10, w: 4, d: 4}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MoveSpeed != 0.25 {
		t.Fatalf("moveSpeed = %v, want overlay value 0.25", cfg.MoveSpeed)
	}
	if cfg.SendIntervalMs != 100 {
		t.Fatalf("sendIntervalMs = %d, want 100", cfg.SendIntervalMs)
	}
	// Untouched keys keep their defaults.
	if cfg.SnapDistance != 5.0 {
		t.Fatalf("snapDistance = %v, want default 5.0", cfg.SnapDistance)
	}
	if len(cfg.Obstacles) != 1 || cfg.Obstacles[0].W != 4 {
		t.Fatalf("obstacles not parsed: %+v", cfg.Obstacles)
	}
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MoveSpeed != Default().MoveSpeed {
		t.Fatalf("empty path should return defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing tuning file")
	}
}
