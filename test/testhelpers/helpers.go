// Package testhelpers provides common utilities for black-box testing of the
// relaycat server over real TCP and WebSocket connections.
package testhelpers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relaycat/relaycat/internal/server"
)

const ioTimeout = 2 * time.Second

// ChatServer is a running hub plus TCP front end bound to an ephemeral port.
type ChatServer struct {
	Hub  *server.Hub
	Addr string

	cancel   context.CancelFunc
	stopOnce sync.Once
}

// StartChatServer boots a complete chat server on 127.0.0.1 with an
// ephemeral port and registers cleanup with the test.
func StartChatServer(t *testing.T) *ChatServer {
	t.Helper()

	hub := server.NewHub()
	go hub.Run()

	srv := server.NewServer(hub, ioTimeout)
	if err := srv.Listen("127.0.0.1", 0); err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := srv.Serve(ctx); err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	}()

	cs := &ChatServer{
		Hub:    hub,
		Addr:   srv.Addr().String(),
		cancel: cancel,
	}
	t.Cleanup(cs.Stop)
	return cs
}

// Stop shuts the server down: the accept loop first, then every session.
func (s *ChatServer) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		_ = s.Hub.Shutdown(5 * time.Second)
	})
}

// StartGateway attaches a WebSocket gateway with the given origin allow
// list to the server's hub and returns its address.
func StartGateway(t *testing.T, s *ChatServer, origins []string) string {
	t.Helper()

	cfg := server.NewConfig()
	cfg.WSAddr = "127.0.0.1:0"
	cfg.AllowedOrigins = origins

	gw := server.NewGateway(cfg, s.Hub)
	if err := gw.Listen(); err != nil {
		t.Fatalf("Failed to start gateway: %v", err)
	}
	go func() {
		if err := gw.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Gateway serve error: %v", err)
		}
	}()
	t.Cleanup(func() {
		_ = gw.Shutdown(2 * time.Second)
	})

	return gw.Addr().String()
}

// ChatClient is a plain TCP chat participant used by integration tests.
type ChatClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// Connect dials the chat server and returns a client ready for the name
// handshake.
func Connect(t *testing.T, addr string) *ChatClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, ioTimeout)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	c := &ChatClient{
		t:      t,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
	t.Cleanup(c.Close)
	return c
}

// Join connects and completes the name handshake in one step.
func Join(t *testing.T, addr, name string) *ChatClient {
	t.Helper()
	c := Connect(t, addr)
	c.ExpectPrompt()
	c.SendLine(name)
	return c
}

// ExpectPrompt consumes the "Enter name: " prompt, which carries no
// trailing newline.
func (c *ChatClient) ExpectPrompt() {
	c.t.Helper()

	const prompt = "Enter name: "
	buf := make([]byte, len(prompt))
	_ = c.conn.SetReadDeadline(time.Now().Add(ioTimeout))
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		c.t.Fatalf("Failed to read name prompt: %v", err)
	}
	if got := string(buf); got != prompt {
		c.t.Fatalf("Expected prompt %q, got %q", prompt, got)
	}
}

// SendLine writes one newline-terminated line to the server.
func (c *ChatClient) SendLine(line string) {
	c.t.Helper()

	_ = c.conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		c.t.Fatalf("Failed to send %q: %v", line, err)
	}
}

// ReadLine blocks for the next server line or fails the test.
func (c *ChatClient) ReadLine() string {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(ioTimeout))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("Failed to read line: %v", err)
	}
	return line
}

// ExpectLine reads the next line and asserts it contains substr.
func (c *ChatClient) ExpectLine(substr string) {
	c.t.Helper()

	line := c.ReadLine()
	if !strings.Contains(line, substr) {
		c.t.Fatalf("Expected line containing %q, got %q", substr, line)
	}
}

// ExpectSilence asserts nothing arrives for the given duration. Used to
// verify a sender never sees its own broadcast.
func (c *ChatClient) ExpectSilence(d time.Duration) {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	b, err := c.reader.ReadByte()
	if err == nil {
		c.t.Fatalf("Expected silence, received data starting with %q", b)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		c.t.Fatalf("Expected read timeout, got: %v", err)
	}
}

// ExpectDisconnect asserts the server closes the connection.
func (c *ChatClient) ExpectDisconnect() {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(ioTimeout))
	for {
		if _, err := c.reader.ReadByte(); err != nil {
			if errors.Is(err, io.EOF) || isClosedErr(err) {
				return
			}
			c.t.Fatalf("Expected disconnect, got: %v", err)
		}
	}
}

// Close tears the client connection down; safe to call repeatedly.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		strings.Contains(err.Error(), "connection reset by peer")
}
