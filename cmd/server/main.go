// Command server runs the relaycat chat broadcaster: a TCP line-chat
// server with an operator console and an optional WebSocket gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaycat/relaycat/internal/server"
)

func main() {
	cfg := server.NewConfigFromEnv()

	host := flag.String("host", cfg.Host, "Listen address")
	port := flag.Int("port", cfg.Port, "Listen port")
	wsAddr := flag.String("ws-addr", cfg.WSAddr, "WebSocket gateway listen address (empty disables the gateway)")
	flag.Parse()

	cfg.Host = *host
	cfg.Port = *port
	cfg.WSAddr = *wsAddr
	cfg.Sanitize()

	hub := server.NewHub()
	srv := server.NewServer(hub, cfg.WriteTimeout)
	if err := srv.Listen(cfg.Host, cfg.Port); err != nil {
		log.Fatalf("Unable to start server: %v", err)
	}
	log.Printf("Server started on %s:%d", cfg.Host, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Shutting down server...")
		cancel()
	}()

	go hub.Run()

	var gateway *server.Gateway
	if cfg.WSAddr != "" {
		gateway = server.NewGateway(cfg, hub)
		if err := gateway.Listen(); err != nil {
			log.Fatalf("Unable to start WebSocket gateway: %v", err)
		}
		log.Printf("WebSocket gateway listening on %s", gateway.Addr())
		go func() {
			if err := gateway.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("WebSocket gateway error: %v", err)
			}
		}()
	}

	console := server.NewConsole(hub, os.Stdin, os.Stdout, cancel)
	go console.Run(ctx)

	if err := srv.Serve(ctx); err != nil {
		log.Printf("Server error: %v", err)
	}

	if gateway != nil {
		if err := gateway.Shutdown(cfg.ShutdownTimeout); err != nil {
			log.Printf("Gateway shutdown error: %v", err)
		}
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
