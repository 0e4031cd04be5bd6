// Package server manages individual chat sessions, handling the name
// handshake, command dispatch, read/write pumps, and lifecycle control for
// each connection.
package server

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// sendQueueSize buffers outbound lines per session so broadcast fan-out
// never blocks on a slow peer.
const sendQueueSize = 256

// Client represents one chat session. The read pump exclusively owns the
// inbound side of the transport and the session state machine; all writes
// are funneled through the buffered send queue and drained by the write
// pump, serializing concurrent broadcast deliveries to one connection.
type Client struct {
	id   string
	conn lineTransport
	send chan string
	hub  *Hub
	addr string

	// named flips once the first non-empty line is taken as the display
	// name. Touched only by the read pump.
	named bool

	closing   chan struct{}
	closeOnce sync.Once
}

// NewClient creates a session for the given transport. The session is inert
// until it is registered with the hub, which starts both pumps.
func NewClient(conn lineTransport, hub *Hub, addr string) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan string, sendQueueSize),
		hub:     hub,
		addr:    addr,
		closing: make(chan struct{}),
	}
}

// ID returns the session's unique identifier, used in server diagnostics.
func (c *Client) ID() string {
	return c.id
}

// beginShutdown signals the write pump to drain out. Safe to call from any
// goroutine, any number of times.
func (c *Client) beginShutdown() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
}

// trySend enqueues a line for delivery without blocking. Lines are dropped
// when the queue is full; the peer is presumed dead and will be reaped.
func (c *Client) trySend(s string) bool {
	select {
	case c.send <- s:
		return true
	default:
		return false
	}
}

// readPump drives the session state machine: handshake, command dispatch,
// and chat relay. Teardown is deferred and unconditional, so the session is
// unregistered and its transport closed regardless of which error path
// ended the loop. Session failures never propagate past this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.requestUnregister(c)
		c.beginShutdown()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s (%s): %v", c.id, c.addr, err)
		}
	}()

	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			c.logDisconnect(err)
			return
		}

		msg := strings.TrimSpace(line)
		if msg == "" {
			continue
		}

		if !c.named {
			c.completeHandshake(msg)
			continue
		}

		if strings.HasPrefix(msg, "/") {
			if quit := c.dispatchCommand(msg); quit {
				return
			}
			continue
		}

		c.relayChat(msg)
	}
}

// completeHandshake takes the first non-empty line verbatim as the display
// name. Duplicate names are permitted; no uniqueness is enforced.
func (c *Client) completeHandshake(name string) {
	c.named = true
	c.hub.registry.Rename(c, name)
	chatlog.Printf("%s %s joined", timestamp(), name)
	c.hub.broadcastExcept(c, joinedNotice(name))
}

// dispatchCommand handles one slash command and reports whether the session
// asked to end. Unknown commands and malformed renames keep the session
// running.
func (c *Client) dispatchCommand(msg string) (quit bool) {
	switch {
	case msg == "/quit":
		return true
	case msg == "/list":
		c.trySend(listReply(c.hub.registry.SnapshotNames()))
	case msg == "/help":
		c.trySend(helpReply)
	case strings.HasPrefix(msg, "/nick "):
		c.rename(strings.TrimSpace(strings.TrimPrefix(msg, "/nick ")))
	default:
		c.trySend(unknownReply)
	}
	return false
}

// rename updates the registry entry and notifies every other session.
// An empty name is silently ignored.
func (c *Client) rename(newName string) {
	if newName == "" {
		return
	}
	oldName, ok := c.hub.registry.Rename(c, newName)
	if !ok {
		return
	}
	chatlog.Printf("%s %s -> %s", timestamp(), oldName, newName)
	c.hub.broadcastExcept(c, renameNotice(oldName, newName))
}

// relayChat formats the chat envelope and fans it out to all sessions
// except the sender, which displays its own line locally.
func (c *Client) relayChat(text string) {
	ts := timestamp()
	name := c.hub.registry.LookupName(c)
	line := chatLine(ts, name, text)
	chatlog.Print(strings.TrimSuffix(line, "\n"))
	c.hub.broadcastExcept(c, line)
}

// logDisconnect distinguishes orderly shutdown from abnormal termination.
// Both end the session the same way.
func (c *Client) logDisconnect(err error) {
	switch {
	case errors.Is(err, io.EOF):
		log.Printf("Client %s (%s) closed the connection", c.id, c.addr)
	case isExpectedCloseError(err):
		log.Printf("Client %s (%s) connection reset: %v", c.id, c.addr, err)
	default:
		log.Printf("Read error from %s (%s): %v", c.id, c.addr, err)
	}
}

// writePump drains the send queue to the transport. A write failure closes
// the connection, which unblocks the read pump and triggers teardown there.
func (c *Client) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump for %s (%s): %v", c.id, c.addr, err)
		}
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteString(msg); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Write error to %s (%s): %v", c.id, c.addr, err)
				}
				return
			}
		case <-c.closing:
			return
		}
	}
}
