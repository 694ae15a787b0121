package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "World TTL before expiry")
	flag.Parse()

	reg := NewRegistry(*ttl)
	defer reg.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /worlds", ListWorlds(reg))
	mux.HandleFunc("POST /worlds/register", RegisterWorld(reg))
	mux.HandleFunc("POST /worlds/heartbeat", Heartbeat(reg))
	mux.HandleFunc("GET /health", Health())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("[master] shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("[master] starting on %s (TTL=%s)", srv.Addr, *ttl)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[master] fatal: %v", err)
	}
}
