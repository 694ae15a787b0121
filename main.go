package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caldern/emberfield-mp/components"
	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/network"
	"github.com/caldern/emberfield-mp/shared/messages"
	"github.com/caldern/emberfield-mp/shared/protocol"
	"github.com/caldern/emberfield-mp/systems"
	"github.com/yohamta/donburi"
)

func main() {
	address := flag.String("server", "localhost:7373", "Server address (host:port)")
	name := flag.String("name", "", "Player name (default: saved name, else generated)")
	tuningPath := flag.String("tuning", "", "Path to a YAML tuning overlay")
	greeting := flag.String("greeting", "", "Chat line sent after joining")
	joinTimeout := flag.Duration("jointimeout", 10*time.Second, "How long to wait for the join handshake")
	flag.Parse()

	cfg, err := config.Load(*tuningPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatalf("Failed to register components: %v", err)
	}

	if err := systems.InitPersistence(); err != nil {
		log.Println("Continuing without local storage")
	}

	settings, _ := systems.LoadSettings()
	playerName := *name
	if playerName == "" && settings != nil {
		playerName = settings.PlayerName
	}
	if playerName == "" {
		playerName = fmt.Sprintf("ember-%d", os.Getpid())
	}

	// A cached position plus its token is the reconnect-recovery offer; the
	// server decides whether to honor it.
	var resume *messages.Vector3
	token := ""
	if saved, _ := systems.LoadLastPosition(); saved != nil {
		token = saved.Token
		resume = &messages.Vector3{X: saved.X, Y: saved.Y, Z: saved.Z}
	}

	client := network.NewClient()
	client.Connect(*address, protocol.Version, playerName, token, resume)
	defer client.Disconnect()

	if err := client.WaitForJoin(*joinTimeout); err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	_ = systems.SaveSettings(&systems.SavedSettings{
		PlayerName:    playerName,
		ServerAddress: *address,
	})

	spawn := client.Spawn()
	// Tick rate and spawn are server-assigned; the local tuning follows.
	if tr := client.TickRate(); tr > 0 {
		cfg.TickRate = tr
	}
	cfg.SpawnX, cfg.SpawnY, cfg.SpawnZ = spawn.X, spawn.Y, spawn.Z

	world := donburi.NewWorld()
	entity := world.Create(
		components.Position,
		components.Rotation,
		components.LocalMotion,
		components.InputIntent,
		components.PositionHistory,
	)
	entry := world.Entry(entity)
	components.Position.SetValue(entry, components.PositionData{X: spawn.X, Y: spawn.Y, Z: spawn.Z})

	motion := systems.NewLocalMotion(cfg)
	motion.InitCollision()

	dt := 1.0 / float64(cfg.TickRate)
	tickSystems := []func(donburi.World){
		systems.NewCameraSystem(systems.NewCamera(), dt),
		systems.NewBotSystem(systems.NewBot(cfg)),
		systems.NewLocalMotionSystem(motion),
		systems.NewNetSendSystem(systems.NewNetSend(cfg, client, motion)),
		systems.NewNetSyncSystem(systems.NewNetSync(cfg, client)),
		systems.NewAnomalyGuardSystem(systems.NewAnomalyGuard(cfg)),
	}

	if *greeting != "" {
		if err := client.SendChat(*greeting); err != nil {
			log.Printf("Greeting failed: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Joined %q as %q (tick rate %d/s)", *address, playerName, cfg.TickRate)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sigChan:
			log.Println("Shutting down...")
			break loop
		case <-ticker.C:
			for _, system := range tickSystems {
				system(world)
			}
			for _, chat := range client.DrainChat() {
				log.Printf("[chat] %s: %s", chat.PlayerName, chat.Text)
			}
			for _, up := range client.DrainLevelUps() {
				log.Printf("[level] player %d is now level %d", up.PlayerID, up.Level)
			}
		}
	}

	pos := components.Position.Get(entry)
	_ = systems.SaveLastPosition(systems.SavedPosition{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		Token: client.ReconnectToken(),
	})
}
