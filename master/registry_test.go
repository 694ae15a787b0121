package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistryRegisterAndList(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	id := reg.Register(WorldInfo{Name: "alpha", Address: "host-a:7373", Players: 3, Version: "0.3.0"})
	if id == "" {
		t.Fatal("empty id from register")
	}
	reg.Register(WorldInfo{Name: "beta", Address: "host-b:7373", Players: 9, Version: "0.3.0"})

	worlds := reg.List("", "")
	if len(worlds) != 2 {
		t.Fatalf("got %d worlds, want 2", len(worlds))
	}
	if worlds[0].Name != "beta" {
		t.Errorf("list should be most populated first, got %q", worlds[0].Name)
	}
}

func TestRegistryListFiltersVersion(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	reg.Register(WorldInfo{Name: "old", Address: "a:1", Version: "0.2.0"})
	reg.Register(WorldInfo{Name: "new", Address: "b:1", Version: "0.3.0"})

	worlds := reg.List("0.3.0", "")
	if len(worlds) != 1 || worlds[0].Name != "new" {
		t.Fatalf("version filter failed: %+v", worlds)
	}
}

func TestRegistryListFiltersRegion(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	reg.Register(WorldInfo{Name: "east", Address: "a:1", Region: "us-east"})
	reg.Register(WorldInfo{Name: "west", Address: "b:1", Region: "us-west"})

	worlds := reg.List("", "us-west")
	if len(worlds) != 1 || worlds[0].Name != "west" {
		t.Fatalf("region filter failed: %+v", worlds)
	}
}

func TestRegistryHeartbeatClampsPlayers(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	id := reg.Register(WorldInfo{Name: "alpha", Address: "a:1", MaxPlayers: 8})

	reg.Heartbeat(id, 500)
	if worlds := reg.List("", ""); worlds[0].Players != 8 {
		t.Errorf("player count should clamp to capacity, got %d", worlds[0].Players)
	}

	reg.Heartbeat(id, -3)
	if worlds := reg.List("", ""); worlds[0].Players != 0 {
		t.Errorf("negative player count should clamp to zero, got %d", worlds[0].Players)
	}
}

func TestRegistryHeartbeat(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	id := reg.Register(WorldInfo{Name: "alpha", Address: "a:1"})

	if !reg.Heartbeat(id, 5) {
		t.Fatal("heartbeat for known world rejected")
	}
	if reg.Heartbeat("bogus", 1) {
		t.Fatal("heartbeat for unknown world accepted")
	}

	worlds := reg.List("", "")
	if worlds[0].Players != 5 {
		t.Errorf("heartbeat should update player count, got %d", worlds[0].Players)
	}
}

func TestRegistryExpiry(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)
	defer reg.Stop()

	reg.Register(WorldInfo{Name: "flicker", Address: "a:1"})
	reg.expire(time.Now().Add(time.Second))

	if got := len(reg.List("", "")); got != 0 {
		t.Fatalf("expired world still listed, %d entries", got)
	}
}

func TestRegisterHandler(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	body, _ := json.Marshal(registerRequest{Name: "alpha", Address: "host:7373", MaxPlayers: 64})
	req := httptest.NewRequest(http.MethodPost, "/worlds/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	RegisterWorld(reg)(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d, want %d", rr.Code, http.StatusCreated)
	}
	var resp registerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.ID == "" {
		t.Fatalf("bad response body %q (err %v)", rr.Body.String(), err)
	}
}

func TestRegisterHandlerRejectsIncomplete(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	body, _ := json.Marshal(registerRequest{Name: "alpha"})
	req := httptest.NewRequest(http.MethodPost, "/worlds/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	RegisterWorld(reg)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHeartbeatHandlerUnknownWorld(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()

	body, _ := json.Marshal(heartbeatRequest{ID: "nope"})
	req := httptest.NewRequest(http.MethodPost, "/worlds/heartbeat", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	Heartbeat(reg)(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListHandler(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()
	reg.Register(WorldInfo{Name: "alpha", Address: "a:1", Version: "0.3.0"})

	req := httptest.NewRequest(http.MethodGet, "/worlds?version=0.3.0", nil)
	rr := httptest.NewRecorder()

	ListWorlds(reg)(rr, req)

	var worlds []WorldInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &worlds); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(worlds) != 1 || worlds[0].Name != "alpha" {
		t.Fatalf("unexpected listing: %+v", worlds)
	}
}

func TestListHandlerRegionQuery(t *testing.T) {
	reg := NewRegistry(time.Minute)
	defer reg.Stop()
	reg.Register(WorldInfo{Name: "east", Address: "a:1", Region: "eu"})
	reg.Register(WorldInfo{Name: "west", Address: "b:1", Region: "us-west"})

	req := httptest.NewRequest(http.MethodGet, "/worlds?region=eu", nil)
	rr := httptest.NewRecorder()

	ListWorlds(reg)(rr, req)

	var worlds []WorldInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &worlds); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(worlds) != 1 || worlds[0].Name != "east" {
		t.Fatalf("region query not applied: %+v", worlds)
	}
}
