package messages

import "github.com/leap-fish/necs/esync"

// ExperienceEvent is broadcast when a player earns experience.
type ExperienceEvent struct {
	PlayerID esync.NetworkId
	Amount   int
	Total    int
}

// LevelUpEvent is broadcast when accumulated experience crosses a level
// threshold. Level is the new level.
type LevelUpEvent struct {
	PlayerID esync.NetworkId
	Level    int
}
