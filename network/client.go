package network

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/caldern/emberfield-mp/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

// Client manages a WebSocket connection to the session server. Inbound
// messages are buffered into channels and drained by the frame loop at the
// start of each tick, so router callbacks (which run on necs goroutines)
// never touch entity state directly.
// All shared fields are protected by mu.
type Client struct {
	mu sync.RWMutex

	state          ClientState
	lastError      error
	networkID      esync.NetworkId
	reconnectToken string
	serverName     string
	tickRate       int
	spawn          messages.Vector3
	generation     uint64 // bumped on every accepted join; a change means stale remote state
	conn           *websocket.Conn

	snapshotCh chan esync.WorldSnapshot // size-1 buffered; latest wins

	joinedCh  chan messages.PlayerJoined
	leftCh    chan messages.PlayerLeft
	movedCh   chan messages.PlayerMoved
	chatCh    chan messages.ChatBroadcast
	levelUpCh chan messages.LevelUpEvent
}

func NewClient() *Client {
	return &Client{
		state:      StateDisconnected,
		snapshotCh: make(chan esync.WorldSnapshot, 1),
		joinedCh:   make(chan messages.PlayerJoined, 64),
		leftCh:     make(chan messages.PlayerLeft, 64),
		movedCh:    make(chan messages.PlayerMoved, 256),
		chatCh:     make(chan messages.ChatBroadcast, 16),
		levelUpCh:  make(chan messages.LevelUpEvent, 16),
	}
}

// Connect dials the server in a background goroutine and initiates the join
// handshake. resume, when non-nil, is the locally cached position offered to
// the server for reconnect recovery.
func (c *Client) Connect(address, version, playerName, reconnectToken string, resume *messages.Vector3) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		log.Println("[client] connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		req := messages.JoinRequest{
			Version:        version,
			PlayerName:     playerName,
			ReconnectToken: reconnectToken,
		}
		if resume != nil {
			req.HasResume = true
			req.ResumeX, req.ResumeY, req.ResumeZ = resume.X, resume.Y, resume.Z
		}

		payload, err := router.Serialize(req)
		if err != nil {
			c.setError(fmt.Errorf("failed to serialize join request: %w", err))
			return
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn != nil {
			if err := conn.Write(context.Background(), websocket.MessageBinary, payload); err != nil {
				c.setError(fmt.Errorf("failed to send join request: %w", err))
			}
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		log.Printf("[client] join accepted: networkID=%d server=%s tickRate=%d",
			msg.NetworkID, msg.ServerName, msg.TickRate)
		c.mu.Lock()
		c.networkID = msg.NetworkID
		c.reconnectToken = msg.ReconnectToken
		c.serverName = msg.ServerName
		c.tickRate = msg.TickRate
		c.spawn = messages.Vector3{X: msg.SpawnX, Y: msg.SpawnY, Z: msg.SpawnZ}
		c.generation++
		c.state = StateJoinedGame
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		log.Printf("[client] join rejected: %s", msg.Reason)
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		select { // drain stale, push latest
		case <-c.snapshotCh:
		default:
		}
		c.snapshotCh <- snapshot
	})

	router.On(func(_ *router.NetworkClient, msg messages.PlayerJoined) {
		select {
		case c.joinedCh <- msg:
		default:
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.PlayerLeft) {
		select {
		case c.leftCh <- msg:
		default:
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.PlayerMoved) {
		select {
		case c.movedCh <- msg:
		default:
			// Queue full: dropping is safe, the next snapshot supersedes this one.
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.ChatBroadcast) {
		select {
		case c.chatCh <- msg:
		default:
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.LevelUpEvent) {
		select {
		case c.levelUpCh <- msg:
		default:
		}
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] disconnected: %v", err)
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] error: %v", err)
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) NetworkID() esync.NetworkId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networkID
}

func (c *Client) ReconnectToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectToken
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// Spawn returns the spawn transform assigned by the server at join.
func (c *Client) Spawn() messages.Vector3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.spawn
}

// Generation increments every time a join is accepted. Consumers compare it
// against the last value they saw and clear any remote-entity state when it
// changes, so a reconnect can never resurrect stale targets.
func (c *Client) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// LatestSnapshot returns the most recent esync WorldSnapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *esync.WorldSnapshot {
	select {
	case snap := <-c.snapshotCh:
		return &snap
	default:
		return nil
	}
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

// SendChat fires a chat line at the server, non-blocking semantics as for
// any other send: a failure is logged by the caller and dropped.
func (c *Client) SendChat(text string) error {
	return c.SendMessage(messages.ChatMessage{Text: text})
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

// DrainJoined returns all pending playerJoined events, non-blocking.
func (c *Client) DrainJoined() []messages.PlayerJoined {
	return drainChan(c.joinedCh)
}

// DrainLeft returns all pending playerLeft events, non-blocking.
func (c *Client) DrainLeft() []messages.PlayerLeft {
	return drainChan(c.leftCh)
}

// DrainMoved returns all pending playerMoved snapshots, non-blocking, in
// arrival order.
func (c *Client) DrainMoved() []messages.PlayerMoved {
	return drainChan(c.movedCh)
}

// DrainChat returns all pending chat broadcasts, non-blocking.
func (c *Client) DrainChat() []messages.ChatBroadcast {
	return drainChan(c.chatCh)
}

// DrainLevelUps returns all pending level-up events, non-blocking.
func (c *Client) DrainLevelUps() []messages.LevelUpEvent {
	return drainChan(c.levelUpCh)
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

// WaitForJoin blocks until the join handshake resolves or the timeout
// elapses. Used by the headless client at startup.
func (c *Client) WaitForJoin(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		switch c.State() {
		case StateJoinedGame:
			return nil
		case StateError:
			return c.LastError()
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for join after %s", timeout)
}
