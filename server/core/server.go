package core

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/shared/gamemath"
	"github.com/caldern/emberfield-mp/shared/messages"
	"github.com/caldern/emberfield-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/yohamta/donburi"
)

const (
	chatMinInterval = 500 * time.Millisecond
	chatMaxLength   = 200
	tokenTTL        = 5 * time.Minute
	maxAltitude     = 10.0
)

// session is the server-side view of one connected player.
type session struct {
	entity donburi.Entity
	netID  esync.NetworkId
	name   string
	token  string
	joined bool

	lastMove    gamemath.Vec3
	lastMoveAt  time.Time
	hasMoved    bool
	lastChatAt  time.Time
	traveledAcc float64 // horizontal distance since the last XP award
	chatXP      int     // experience earned from chat, paid out by the loop
}

// resumeGrant is a disconnect's parting gift: the token lets the same player
// reclaim their last position and progression within the TTL.
type resumeGrant struct {
	pos        gamemath.Vec3
	level      int
	experience int
	expires    time.Time
}

// Server owns the authoritative world: it validates inbound movement,
// fans position snapshots out to every other client, and syncs slow player
// metadata through esync.
type Server struct {
	cfg       *config.Tuning
	name      string
	version   string
	world     donburi.World
	loop      *GameLoop
	transport *transports.WsServerTransport

	mu       sync.RWMutex
	sessions map[*router.NetworkClient]*session
	resumes  map[string]resumeGrant
}

func NewServer(cfg *config.Tuning, name, version string, tickRate int) *Server {
	world := donburi.NewWorld()

	s := &Server{
		cfg:      cfg,
		name:     name,
		version:  version,
		world:    world,
		sessions: make(map[*router.NetworkClient]*session),
		resumes:  make(map[string]resumeGrant),
	}
	s.loop = NewGameLoop(s, tickRate)

	srvsync.UseEsync(world)
	s.setupRouterCallbacks()

	return s
}

// Start begins the server on the given port. Blocks.
func (s *Server) Start(port uint) error {
	go s.loop.Run()

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

func (s *Server) Stop() {
	s.loop.Stop()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		log.Printf("[server] client connected: %s", client.Id())
		s.mu.Lock()
		s.sessions[client] = &session{}
		s.mu.Unlock()
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		s.onDisconnect(client, err)
	})

	router.On(func(client *router.NetworkClient, req messages.JoinRequest) {
		s.onJoinRequest(client, req)
	})

	router.On(func(client *router.NetworkClient, move messages.PlayerMove) {
		s.onPlayerMove(client, move)
	})

	router.On(func(client *router.NetworkClient, chat messages.ChatMessage) {
		s.onChat(client, chat)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Printf("[server] client error: %v", err)
	})
}

func (s *Server) onJoinRequest(client *router.NetworkClient, req messages.JoinRequest) {
	if s.version != "" && req.Version != s.version {
		s.send(client, messages.JoinRejected{
			Reason: "version mismatch, server requires " + s.version,
		})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[client]
	if !ok || sess.joined {
		s.mu.Unlock()
		return
	}

	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		name = "player"
	}
	if len(name) > 24 {
		name = name[:24]
	}

	spawn := gamemath.Vec3{X: s.cfg.SpawnX, Y: s.cfg.SpawnY, Z: s.cfg.SpawnZ}
	level, experience := 1, 0
	if req.HasResume && req.ReconnectToken != "" {
		if grant, ok := s.resumes[req.ReconnectToken]; ok && time.Now().Before(grant.expires) {
			offered := gamemath.Vec3{X: req.ResumeX, Y: req.ResumeY, Z: req.ResumeZ}
			// The client's cached position may trail the grant slightly; any
			// plausible offer near the recorded spot is honored.
			if s.inBounds(offered) && gamemath.DistSq(offered, grant.pos) < s.cfg.SnapDistanceSq() {
				spawn = offered
			} else {
				spawn = grant.pos
			}
			level, experience = grant.level, grant.experience
			delete(s.resumes, req.ReconnectToken)
		}
	}

	entity := s.world.Create(
		components.Position,
		components.Rotation,
		netcomponents.NetPlayerState,
	)
	entry := s.world.Entry(entity)
	components.Position.SetValue(entry, components.PositionData{X: spawn.X, Y: spawn.Y, Z: spawn.Z})
	netcomponents.NetPlayerState.SetValue(entry, netcomponents.NetPlayerStateData{
		Name:       name,
		Level:      level,
		Experience: experience,
		Health:     100,
	})

	if err := srvsync.NetworkSync(s.world, &entity, netcomponents.NetPlayerState); err != nil {
		s.mu.Unlock()
		log.Printf("[server] network sync setup failed: %v", err)
		s.send(client, messages.JoinRejected{Reason: "internal error"})
		s.world.Remove(entity)
		return
	}

	netID := esync.GetNetworkId(entry)
	if netID == nil {
		s.mu.Unlock()
		log.Printf("[server] entity has no network id after sync setup")
		s.send(client, messages.JoinRejected{Reason: "internal error"})
		s.world.Remove(entity)
		return
	}

	sess.entity = entity
	sess.netID = *netID
	sess.name = name
	sess.token = newToken()
	sess.joined = true
	sess.lastMove = spawn
	sess.lastMoveAt = time.Now()

	// Snapshot existing players while still holding the lock.
	type known struct {
		id   esync.NetworkId
		name string
		pos  components.PositionData
		yaw  float64
	}
	var others []known
	for c, other := range s.sessions {
		if c == client || !other.joined || !s.world.Valid(other.entity) {
			continue
		}
		oe := s.world.Entry(other.entity)
		others = append(others, known{
			id:   other.netID,
			name: other.name,
			pos:  *components.Position.Get(oe),
			yaw:  components.Rotation.Get(oe).Yaw,
		})
	}
	s.mu.Unlock()

	s.send(client, messages.JoinAccepted{
		NetworkID:      sess.netID,
		ReconnectToken: sess.token,
		ServerName:     s.name,
		TickRate:       s.loop.tickRate,
		SpawnX:         spawn.X,
		SpawnY:         spawn.Y,
		SpawnZ:         spawn.Z,
	})

	for _, o := range others {
		s.send(client, messages.PlayerJoined{
			PlayerID:   o.id,
			PlayerName: o.name,
			Position:   messages.Vector3{X: o.pos.X, Y: o.pos.Y, Z: o.pos.Z},
			RotationY:  o.yaw,
		})
	}

	s.broadcastExcept(client, messages.PlayerJoined{
		PlayerID:   sess.netID,
		PlayerName: name,
		Position:   messages.Vector3{X: spawn.X, Y: spawn.Y, Z: spawn.Z},
		RotationY:  0,
	})

	log.Printf("[server] player %q joined as %d at (%.1f, %.1f, %.1f)",
		name, sess.netID, spawn.X, spawn.Y, spawn.Z)
}

func (s *Server) onPlayerMove(client *router.NetworkClient, move messages.PlayerMove) {
	now := time.Now()

	s.mu.Lock()
	sess, ok := s.sessions[client]
	if !ok || !sess.joined || !s.world.Valid(sess.entity) {
		s.mu.Unlock()
		return
	}

	pos := gamemath.Vec3{X: move.X, Y: move.Y, Z: move.Z}
	pos = s.clampMove(sess, pos, now)

	entry := s.world.Entry(sess.entity)
	components.Position.SetValue(entry, components.PositionData{X: pos.X, Y: pos.Y, Z: pos.Z})
	if move.HasRotation {
		components.Rotation.Get(entry).Yaw = move.RotationY
	}

	var vel gamemath.Vec3
	hasVel := false
	if sess.hasMoved {
		if dt := now.Sub(sess.lastMoveAt).Seconds(); dt > 0 && dt < 1 {
			vel = pos.Sub(sess.lastMove).Scale(1 / dt)
			hasVel = true
		}
	}

	sess.traveledAcc += gamemath.DistXZ(pos, sess.lastMove)
	sess.lastMove = pos
	sess.lastMoveAt = now
	sess.hasMoved = true

	out := messages.PlayerMoved{
		PlayerID:    sess.netID,
		Position:    messages.Vector3{X: pos.X, Y: pos.Y, Z: pos.Z},
		HasRotation: move.HasRotation,
		HasVelocity: hasVel,
	}
	if move.HasRotation {
		out.Rotation = messages.Vector3{Y: move.RotationY}
	}
	if hasVel {
		out.Velocity = messages.Vector3{X: vel.X, Y: vel.Y, Z: vel.Z}
	}
	s.mu.Unlock()

	s.broadcastExcept(client, out)
}

// clampMove applies the server's own plausibility bound to a reported
// position: the same speed heuristic the client guard uses, then world
// bounds. Mutates nothing; returns the accepted position.
func (s *Server) clampMove(sess *session, pos gamemath.Vec3, now time.Time) gamemath.Vec3 {
	if sess.hasMoved {
		dt := now.Sub(sess.lastMoveAt).Seconds()
		dist := gamemath.DistXZ(pos, sess.lastMove)
		if dt > 0 && dist/dt > s.cfg.AnomalySpeed && dist > s.cfg.MaxStepDistance {
			scale := s.cfg.MaxStepDistance / dist
			pos.X = sess.lastMove.X + (pos.X-sess.lastMove.X)*scale
			pos.Z = sess.lastMove.Z + (pos.Z-sess.lastMove.Z)*scale
		}
	}

	pos.X = gamemath.Clamp(pos.X, -s.cfg.WorldWidth/2, s.cfg.WorldWidth/2)
	pos.Z = gamemath.Clamp(pos.Z, -s.cfg.WorldDepth/2, s.cfg.WorldDepth/2)
	pos.Y = gamemath.Clamp(pos.Y, s.cfg.GroundY, s.cfg.GroundY+maxAltitude)
	return pos
}

func (s *Server) onChat(client *router.NetworkClient, chat messages.ChatMessage) {
	now := time.Now()

	s.mu.Lock()
	sess, ok := s.sessions[client]
	if !ok || !sess.joined {
		s.mu.Unlock()
		return
	}
	if now.Sub(sess.lastChatAt) < chatMinInterval {
		s.mu.Unlock()
		return
	}
	sess.lastChatAt = now

	text := strings.TrimSpace(chat.Text)
	if text == "" {
		s.mu.Unlock()
		return
	}
	if len(text) > chatMaxLength {
		text = text[:chatMaxLength]
	}
	sess.chatXP += xpPerChat

	out := messages.ChatBroadcast{
		PlayerID:   sess.netID,
		PlayerName: sess.name,
		Text:       text,
		Timestamp:  now.UnixMilli(),
	}
	s.mu.Unlock()

	s.broadcast(out)
}

func (s *Server) onDisconnect(client *router.NetworkClient, err error) {
	if err != nil {
		log.Printf("[server] client %s disconnected: %v", client.Id(), err)
	} else {
		log.Printf("[server] client %s disconnected", client.Id())
	}

	s.mu.Lock()
	sess, ok := s.sessions[client]
	if ok {
		delete(s.sessions, client)
	}
	var left *messages.PlayerLeft
	if ok && sess.joined {
		if s.world.Valid(sess.entity) {
			entry := s.world.Entry(sess.entity)
			pos := components.Position.Get(entry)
			state := netcomponents.NetPlayerState.Get(entry)
			s.resumes[sess.token] = resumeGrant{
				pos:        gamemath.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
				level:      state.Level,
				experience: state.Experience,
				expires:    time.Now().Add(tokenTTL),
			}
			s.world.Remove(sess.entity)
		}
		left = &messages.PlayerLeft{PlayerID: sess.netID}
	}
	s.mu.Unlock()

	if left != nil {
		s.broadcast(*left)
	}
}

func (s *Server) send(client *router.NetworkClient, msg any) {
	if err := client.SendMessage(msg); err != nil {
		log.Printf("[server] send to %s failed: %v", client.Id(), err)
	}
}

func (s *Server) broadcast(msg any) {
	s.broadcastExcept(nil, msg)
}

func (s *Server) broadcastExcept(skip *router.NetworkClient, msg any) {
	s.mu.RLock()
	targets := make([]*router.NetworkClient, 0, len(s.sessions))
	for c, sess := range s.sessions {
		if c == skip || !sess.joined {
			continue
		}
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		s.send(c, msg)
	}
}

func (s *Server) inBounds(p gamemath.Vec3) bool {
	return math.Abs(p.X) <= s.cfg.WorldWidth/2 &&
		math.Abs(p.Z) <= s.cfg.WorldDepth/2 &&
		p.Y >= s.cfg.GroundY && p.Y <= s.cfg.GroundY+maxAltitude
}

// World returns the ECS world.
func (s *Server) World() donburi.World {
	return s.world
}

// PlayerCount returns the number of joined players.
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.joined {
			n++
		}
	}
	return n
}

func newToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
