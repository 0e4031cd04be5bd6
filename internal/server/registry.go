// Package server tracks the identity, display name, and remote address of
// every active session in a single lock-guarded registry.
package server

import (
	"sort"
	"sync"
)

type registryEntry struct {
	name string
	addr string
}

// Registry is the shared collection of active sessions. Every session
// eligible to receive broadcasts has exactly one entry, keyed by its Client.
// All operations are serialized through one mutex; the lock is never held
// across a network write.
type Registry struct {
	mu      sync.Mutex
	entries map[*Client]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[*Client]registryEntry),
	}
}

// Add inserts a session with its remote address and initial display name.
// Adding an already-present session is a no-op.
func (r *Registry) Add(c *Client, addr, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c]; ok {
		return
	}
	r.entries[c] = registryEntry{name: name, addr: addr}
}

// Remove deletes a session and reports whether it was present.
// Removing an absent session is a no-op, so teardown paths may race.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c]; !ok {
		return false
	}
	delete(r.entries, c)
	return true
}

// Rename updates a session's display name in place and returns the previous
// name. Renaming an absent session is a no-op.
func (r *Registry) Rename(c *Client, newName string) (oldName string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, present := r.entries[c]
	if !present {
		return "", false
	}
	oldName = entry.name
	entry.name = newName
	r.entries[c] = entry
	return oldName, true
}

// LookupName returns a session's current display name, or "Unknown" when the
// session has already been removed.
func (r *Registry) LookupName(c *Client) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[c]
	if !ok {
		return unknownName
	}
	return entry.name
}

// SnapshotNames returns an independent, sorted copy of all current display
// names, safe to use after the lock is released.
func (r *Registry) SnapshotNames() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// snapshotClients returns an independent copy of the registered sessions so
// broadcast fan-out can iterate without holding the lock.
func (r *Registry) snapshotClients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := make([]*Client, 0, len(r.entries))
	for c := range r.entries {
		clients = append(clients, c)
	}
	return clients
}

// clear removes every session and returns them, used during shutdown so no
// new session can be reached once teardown begins.
func (r *Registry) clear() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := make([]*Client, 0, len(r.entries))
	for c := range r.entries {
		clients = append(clients, c)
	}
	r.entries = make(map[*Client]registryEntry)
	return clients
}
