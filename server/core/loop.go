package core

import (
	"log"
	"time"

	"github.com/caldern/emberfield-mp/shared/messages"
	"github.com/caldern/emberfield-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
)

type GameLoop struct {
	server   *Server
	tickRate int
	running  bool
	stopChan chan struct{}
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	g.running = true
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	log.Printf("[server] game loop started at %d ticks/second", g.tickRate)

	for {
		select {
		case <-g.stopChan:
			g.running = false
			log.Println("[server] game loop stopped")
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}

func (g *GameLoop) tick() {
	g.server.awardProgression()
	g.server.pruneResumes(time.Now())

	if err := srvsync.DoSync(); err != nil {
		log.Printf("[server] sync error: %v", err)
	}
}

// awardProgression converts accumulated travel distance into experience and
// announces the resulting level changes.
func (s *Server) awardProgression() {
	type xpNote struct {
		client *router.NetworkClient
		event  messages.ExperienceEvent
	}
	var notes []xpNote
	var levelUps []messages.LevelUpEvent

	s.mu.Lock()
	for client, sess := range s.sessions {
		if !sess.joined || !s.world.Valid(sess.entity) {
			continue
		}
		if sess.traveledAcc < xpTravelUnit && sess.chatXP == 0 {
			continue
		}

		units := int(sess.traveledAcc / xpTravelUnit)
		sess.traveledAcc -= float64(units) * xpTravelUnit
		gained := units*xpPerTravelUnit + sess.chatXP
		sess.chatXP = 0

		entry := s.world.Entry(sess.entity)
		state := netcomponents.NetPlayerState.Get(entry)
		state.Experience += gained

		notes = append(notes, xpNote{client, messages.ExperienceEvent{
			PlayerID: sess.netID,
			Amount:   gained,
			Total:    state.Experience,
		}})

		if lvl := LevelForXP(state.Experience); lvl > state.Level {
			state.Level = lvl
			levelUps = append(levelUps, messages.LevelUpEvent{
				PlayerID: sess.netID,
				Level:    lvl,
			})
		}
	}
	s.mu.Unlock()

	for _, n := range notes {
		s.send(n.client, n.event)
	}
	for _, up := range levelUps {
		log.Printf("[server] player %d reached level %d", up.PlayerID, up.Level)
		s.broadcast(up)
	}
}

// pruneResumes drops expired reconnect grants.
func (s *Server) pruneResumes(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, grant := range s.resumes {
		if now.After(grant.expires) {
			delete(s.resumes, token)
		}
	}
}
