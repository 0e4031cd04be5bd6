// Package server coordinates session registration, broadcast fan-out, and
// connection cleanup via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub owns the client registry and serializes membership changes and
// broadcast fan-out through one event loop. Sessions talk to the hub over
// channels; the registry itself is never exposed to network writes while
// its lock is held.
type Hub struct {
	registry   *Registry
	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub ready to manage sessions. Run must be started in its
// own goroutine before sessions are registered.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a freshly accepted session to the hub. Once shutdown has
// begun the session is refused and its transport closed, so no new entry
// can appear in the registry after teardown starts.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		c.beginShutdown()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing refused connection from %s: %v", c.addr, err)
		}
	}
}

// Names returns a snapshot of the display names of all registered sessions.
func (h *Hub) Names() []string {
	return h.registry.SnapshotNames()
}

// Count returns the number of registered sessions.
func (h *Hub) Count() int {
	return h.registry.Count()
}

// BroadcastServerMessage delivers an operator-authored line to every
// registered session with the [Server] envelope. It returns the rendered
// line so callers can echo exactly what was delivered.
func (h *Hub) BroadcastServerMessage(text string) string {
	line := serverLine(timestamp(), text)
	h.broadcastAll(line)
	return line
}

func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) broadcastAll(payload string) {
	select {
	case h.broadcast <- BroadcastMessage{Payload: payload}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) broadcastExcept(sender *Client, payload string) {
	select {
	case h.broadcast <- BroadcastMessage{Sender: sender, Payload: payload}:
	case <-h.ctx.Done():
	}
}

// Run is the hub's main event loop, handling session registration,
// unregistration, and broadcast fan-out. It runs until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllSessions()
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// handleRegister inserts the session with its provisional name, prompts for
// the real one, and launches both pumps. Registration precedes the first
// read, so a session is broadcast-eligible for its entire lifetime.
func (h *Hub) handleRegister(c *Client) {
	if c == nil {
		log.Printf("Received nil session registration; skipping")
		return
	}

	h.registry.Add(c, c.addr, anonymousName)
	log.Printf("Client %s connected from %s. Total clients: %d", c.id, c.addr, h.registry.Count())

	c.trySend(namePrompt)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// handleUnregister tears a session down: remove from the registry, notify
// the remaining sessions, stop the write pump. Double unregistration is a
// no-op, so the reap path and the read pump's deferred teardown may race.
func (h *Hub) handleUnregister(c *Client) {
	name := h.registry.LookupName(c)
	if !h.registry.Remove(c) {
		return
	}
	c.beginShutdown()

	chatlog.Printf("%s %s left", timestamp(), name)
	h.handleBroadcast(BroadcastMessage{Sender: c, Payload: leftNotice(name)})
	log.Printf("Client %s disconnected from %s. Total clients: %d", c.id, c.addr, h.registry.Count())
}

// handleBroadcast delivers a line to every registered session except the
// sender. Delivery is a non-blocking enqueue per recipient; sessions whose
// queue is unavailable are removed as part of the same operation, so a dead
// peer is never retried on the next broadcast.
func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	clients := h.registry.snapshotClients()

	var failed []*Client
	for _, c := range clients {
		if msg.Sender != nil && c == msg.Sender {
			continue
		}
		if !h.sendTo(c, msg.Payload) {
			failed = append(failed, c)
		}
	}

	h.reapFailed(failed)
}

// sendTo attempts best-effort delivery of one line to one session.
func (h *Hub) sendTo(c *Client, payload string) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	return c.trySend(payload)
}

// reapFailed removes sessions whose send queue was closed or full and
// closes their connections; each session's own read pump finishes the rest
// of its teardown. Because the removal happens here, the read pump's later
// unregister is a no-op, so the departure notice must also go out here.
func (h *Hub) reapFailed(failed []*Client) {
	for _, c := range failed {
		name := h.registry.LookupName(c)
		if !h.registry.Remove(c) {
			continue
		}
		c.beginShutdown()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s (%s): %v", c.id, c.addr, err)
		}
		log.Printf("Client %s (%s) removed: send queue unavailable", c.id, c.addr)

		chatlog.Printf("%s %s left", timestamp(), name)
		h.handleBroadcast(BroadcastMessage{Sender: c, Payload: leftNotice(name)})
	}
}

// closeAllSessions force-closes every registered session during shutdown.
// Closing the transports unblocks any pending reads.
func (h *Hub) closeAllSessions() {
	clients := h.registry.clear()
	for _, c := range clients {
		c.beginShutdown()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s (%s): %v", c.id, c.addr, err)
		}
	}
	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown stops the event loop, closes every session, and waits for all
// pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
