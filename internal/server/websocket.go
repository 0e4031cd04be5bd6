// Package server exposes the optional WebSocket gateway. Upgraded
// connections join the same hub as TCP sessions and speak the identical
// line protocol, with one text frame carrying one line.
package server

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway serves the health endpoint and WebSocket upgrades on a separate
// HTTP listener. It is optional; an empty address disables it entirely.
type Gateway struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	listener     net.Listener
	server       *http.Server
}

// NewGateway wires a WebSocket front end onto the hub using the configured
// listen address and origin allow list.
func NewGateway(cfg *Config, hub *Hub) *Gateway {
	policy := newOriginPolicy(cfg.AllowedOrigins)

	g := &Gateway{
		hub:          hub,
		writeTimeout: cfg.WriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: readBufferSize,
			CheckOrigin:     policy.check,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", g.healthHandler)
	mux.HandleFunc("/ws", g.websocketHandler)

	g.server = &http.Server{
		Addr:              cfg.WSAddr,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return g
}

// Listen binds the gateway's HTTP listener.
func (g *Gateway) Listen() error {
	listener, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return err
	}
	g.listener = listener
	return nil
}

// Addr returns the bound gateway address.
func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Serve runs the HTTP server on the bound listener until shutdown.
func (g *Gateway) Serve() error {
	return g.server.Serve(g.listener)
}

// Shutdown stops accepting upgrades and waits for in-flight HTTP requests.
// Established WebSocket sessions are closed by the hub's own shutdown.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	log.Println("Shutting down WebSocket gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := g.server.Shutdown(ctx); err != nil {
		log.Printf("WebSocket gateway shutdown error: %v", err)
		return err
	}

	log.Println("WebSocket gateway shutdown completed")
	return nil
}

// healthHandler provides a simple health check endpoint.
func (g *Gateway) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "relaycat server is running!")
}

// websocketHandler upgrades the HTTP connection and registers the result as
// a regular chat session.
func (g *Gateway) websocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(newWSTransport(conn, g.writeTimeout), g.hub, r.RemoteAddr)
	g.hub.Register(client)
}

// wsTransport adapts a WebSocket connection to the line transport contract:
// one text frame per line. Normal closure is reported as io.EOF so the
// session state machine treats it like an orderly TCP shutdown.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSTransport(conn *websocket.Conn, writeTimeout time.Duration) *wsTransport {
	return &wsTransport{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (t *wsTransport) ReadLine() (string, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) {
			return "", io.EOF
		}
		return "", err
	}
	return string(data), nil
}

func (t *wsTransport) WriteString(s string) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
