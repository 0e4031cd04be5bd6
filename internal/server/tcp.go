// Package server owns the TCP listening endpoint and accept loop that feed
// sessions into the hub.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"
)

// Server accepts TCP connections and spawns one session per connection.
// The accept loop never blocks on any one client's lifetime.
type Server struct {
	hub          *Hub
	listener     net.Listener
	writeTimeout time.Duration
}

// NewServer creates a TCP front end for the hub. writeTimeout is the
// per-send deadline applied to every session transport.
func NewServer(hub *Hub, writeTimeout time.Duration) *Server {
	return &Server{
		hub:          hub,
		writeTimeout: writeTimeout,
	}
}

// Listen binds the listening socket. Failure here is the only fatal startup
// condition; the caller is expected to exit non-zero.
func (s *Server) Listen(host string, port int) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen on %s:%d: %w", host, port, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound listener address, useful when listening on an
// ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until the context is cancelled. Transient
// accept errors are logged and the loop continues; a single client's
// failure never reaches this loop.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		if err := s.listener.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing listener: %v", err)
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		client := NewClient(newTCPTransport(conn, s.writeTimeout), s.hub, conn.RemoteAddr().String())
		s.hub.Register(client)
	}
}
