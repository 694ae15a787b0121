package messages

import "github.com/leap-fish/necs/esync"

// ChatMessage is sent by a client to say something in world chat.
type ChatMessage struct {
	Text string
}

// ChatBroadcast relays a chat line to every connected client.
type ChatBroadcast struct {
	PlayerID   esync.NetworkId
	PlayerName string
	Text       string
	Timestamp  int64 // server clock, Unix ms
}
