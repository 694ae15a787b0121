package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// WorldInfo describes a world server visible to clients.
type WorldInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type worldRecord struct {
	WorldInfo
	LastSeen time.Time
}

// Registry is an in-memory store of active world servers with TTL-based
// expiry. A world that stops heartbeating disappears from listings after
// one TTL.
type Registry struct {
	mu     sync.RWMutex
	worlds map[string]*worldRecord
	ttl    time.Duration
	stopCh chan struct{}
}

func NewRegistry(ttl time.Duration) *Registry {
	r := &Registry{
		worlds: make(map[string]*worldRecord),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

func (r *Registry) Stop() {
	close(r.stopCh)
}

func (r *Registry) Register(info WorldInfo) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	id := fmt.Sprintf("%x", b)

	info.ID = id

	r.mu.Lock()
	r.worlds[id] = &worldRecord{
		WorldInfo: info,
		LastSeen:  time.Now(),
	}
	r.mu.Unlock()

	return id
}

func (r *Registry) Heartbeat(id string, players int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.worlds[id]
	if !ok {
		return false
	}
	rec.LastSeen = time.Now()
	// A heartbeat cannot report more players than the world advertised room
	// for, nor fewer than none.
	if players < 0 {
		players = 0
	}
	if rec.MaxPlayers > 0 && players > rec.MaxPlayers {
		players = rec.MaxPlayers
	}
	rec.Players = players
	return true
}

// List returns the active worlds, optionally filtered to one protocol
// version and one region, most populated first.
func (r *Registry) List(version, region string) []WorldInfo {
	r.mu.RLock()
	result := make([]WorldInfo, 0, len(r.worlds))
	for _, rec := range r.worlds {
		if version != "" && rec.Version != version {
			continue
		}
		if region != "" && rec.Region != region {
			continue
		}
		result = append(result, rec.WorldInfo)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Players != result[j].Players {
			return result[i].Players > result[j].Players
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.expire(time.Now())
		}
	}
}

func (r *Registry) expire(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.worlds {
		if now.Sub(rec.LastSeen) >= r.ttl {
			log.Printf("[master] expired world %q (id=%s, last seen %s ago)",
				rec.Name, id, now.Sub(rec.LastSeen).Round(time.Second))
			delete(r.worlds, id)
		}
	}
}
