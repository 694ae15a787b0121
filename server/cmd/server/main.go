package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caldern/emberfield-mp/config"
	"github.com/caldern/emberfield-mp/server/core"
	"github.com/caldern/emberfield-mp/shared/protocol"
)

func main() {
	port := flag.Uint("port", 7373, "Server port")
	tickRate := flag.Int("tickrate", 20, "Server tick rate (updates per second)")
	name := flag.String("name", "Emberfield Server", "Server display name")
	version := flag.String("version", "", "Required client version (empty = accept any)")
	tuningPath := flag.String("tuning", "", "Path to a YAML tuning overlay")
	masterURL := flag.String("master", "", "Master registry URL (empty = standalone)")
	address := flag.String("address", "", "Public address advertised to the master")
	region := flag.String("region", "", "Region label advertised to the master")
	maxPlayers := flag.Int("maxplayers", 64, "Advertised player capacity")
	flag.Parse()

	cfg, err := config.Load(*tuningPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatalf("Failed to register components: %v", err)
	}

	server := core.NewServer(cfg, *name, *version, *tickRate)

	if *masterURL != "" {
		addr := *address
		if addr == "" {
			addr = fmt.Sprintf("localhost:%d", *port)
		}
		reg := core.NewRegistration(*masterURL, *name, addr, protocol.Version, *region, *maxPlayers, server)
		reg.Start()
		defer reg.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down server...")
		server.Stop()
		os.Exit(0)
	}()

	log.Printf("Starting Emberfield server %q on port %d (tick rate: %d/s, version: %s)",
		*name, *port, *tickRate, *version)
	if err := server.Start(*port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
