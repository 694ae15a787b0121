package systems

import (
	"encoding/json"
	"log"

	"github.com/quasilyte/gdata"
)

// SavedPosition is the locally cached world position, written on a coarse
// interval while playing and offered to the server on reconnect.
type SavedPosition struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Token string  `json:"token"`
}

// SavedSettings represents the client settings stored on disk.
type SavedSettings struct {
	PlayerName    string `json:"playerName"`
	ServerAddress string `json:"serverAddress"`
}

var gdataManager *gdata.Manager
var gdataInitialized bool

// InitPersistence initializes the gdata manager for local storage.
func InitPersistence() error {
	m, err := gdata.Open(gdata.Config{
		AppName: "emberfield",
	})
	if err != nil {
		log.Printf("Warning: Could not initialize persistence: %v", err)
		return err
	}
	gdataManager = m
	gdataInitialized = true
	return nil
}

// LoadLastPosition returns the cached position, or nil when none exists.
func LoadLastPosition() (*SavedPosition, error) {
	if !gdataInitialized || gdataManager == nil {
		return nil, nil
	}

	data, err := gdataManager.LoadItem("lastpos")
	if err != nil {
		log.Printf("Warning: Could not load cached position: %v", err)
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	var pos SavedPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		log.Printf("Warning: Could not parse cached position: %v", err)
		return nil, err
	}

	return &pos, nil
}

// SaveLastPosition writes the position cache. Called on the throttle's cache
// cadence, never per tick.
func SaveLastPosition(pos SavedPosition) error {
	if !gdataInitialized || gdataManager == nil {
		return nil
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}

	if err := gdataManager.SaveItem("lastpos", data); err != nil {
		log.Printf("Warning: Could not save cached position: %v", err)
		return err
	}
	return nil
}

// ClearLastPosition drops the cache, used after the server rejects a resume.
func ClearLastPosition() error {
	if !gdataInitialized || gdataManager == nil {
		return nil
	}
	return gdataManager.SaveItem("lastpos", nil)
}

// LoadSettings loads client settings from disk.
func LoadSettings() (*SavedSettings, error) {
	if !gdataInitialized || gdataManager == nil {
		return nil, nil
	}

	data, err := gdataManager.LoadItem("settings")
	if err != nil {
		log.Printf("Warning: Could not load settings: %v", err)
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	var settings SavedSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Printf("Warning: Could not parse saved settings: %v", err)
		return nil, err
	}

	return &settings, nil
}

// SaveSettings saves client settings to disk.
func SaveSettings(s *SavedSettings) error {
	if !gdataInitialized || gdataManager == nil {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	if err := gdataManager.SaveItem("settings", data); err != nil {
		log.Printf("Warning: Could not save settings: %v", err)
		return err
	}
	return nil
}
