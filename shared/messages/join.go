package messages

import "github.com/leap-fish/necs/esync"

// JoinRequest is sent by a client after connecting to request joining the
// world. ReconnectToken and the Resume fields are populated when the client
// is recovering a previous session from its local position cache.
type JoinRequest struct {
	Version        string
	PlayerName     string
	ReconnectToken string

	HasResume                 bool
	ResumeX, ResumeY, ResumeZ float64
}

// JoinAccepted is sent by the server when a client's join request is accepted.
type JoinAccepted struct {
	NetworkID      esync.NetworkId
	ReconnectToken string
	ServerName     string
	TickRate       int
	SpawnX         float64
	SpawnY         float64
	SpawnZ         float64
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}
