package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddAndCount(t *testing.T) {
	r := NewRegistry()
	a := &Client{}
	b := &Client{}

	r.Add(a, "192.0.2.1:1", "Alice")
	r.Add(b, "192.0.2.1:2", "Bob")

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, "Alice", r.LookupName(a))
	assert.Equal(t, "Bob", r.LookupName(b))
}

func TestRegistryAddDuplicateIsNoOp(t *testing.T) {
	r := NewRegistry()
	a := &Client{}

	r.Add(a, "192.0.2.1:1", "Alice")
	r.Add(a, "192.0.2.1:1", "Mallory")

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, "Alice", r.LookupName(a), "second add must not overwrite the entry")
}

func TestRegistryRemoveToleratesDoubleRemoval(t *testing.T) {
	r := NewRegistry()
	a := &Client{}
	r.Add(a, "192.0.2.1:1", "Alice")

	assert.True(t, r.Remove(a))
	assert.False(t, r.Remove(a), "second removal must be a no-op, not an error")
	assert.Equal(t, 0, r.Count())
}

func TestRegistryRename(t *testing.T) {
	r := NewRegistry()
	a := &Client{}
	r.Add(a, "192.0.2.1:1", "Alice")

	old, ok := r.Rename(a, "Alicia")
	require.True(t, ok)
	assert.Equal(t, "Alice", old)
	assert.Equal(t, "Alicia", r.LookupName(a))

	_, ok = r.Rename(&Client{}, "Ghost")
	assert.False(t, ok, "renaming an absent session must be a no-op")
}

func TestRegistryLookupAbsentReturnsSentinel(t *testing.T) {
	r := NewRegistry()
	a := &Client{}
	r.Add(a, "192.0.2.1:1", "Alice")
	r.Remove(a)

	assert.Equal(t, "Unknown", r.LookupName(a))
	assert.Equal(t, "Unknown", r.LookupName(&Client{}))
}

func TestRegistrySnapshotIsIndependentCopy(t *testing.T) {
	r := NewRegistry()
	a := &Client{}
	b := &Client{}
	r.Add(a, "192.0.2.1:1", "Bob")
	r.Add(b, "192.0.2.1:2", "Alice")

	names := r.SnapshotNames()
	assert.Equal(t, []string{"Alice", "Bob"}, names, "snapshot is sorted")

	r.Remove(a)
	r.Remove(b)
	assert.Equal(t, []string{"Alice", "Bob"}, names, "snapshot must survive registry mutation")
	assert.Empty(t, r.SnapshotNames())
}

// Registry size after M joins and K leaves equals M-K regardless of
// interleaving.
func TestRegistryConcurrentJoinLeave(t *testing.T) {
	const joins = 64
	const leaves = 24

	r := NewRegistry()
	clients := make([]*Client, joins)
	for i := range clients {
		clients[i] = &Client{}
	}

	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			r.Add(c, "192.0.2.1:1", "user")
		}(clients[i])
	}
	wg.Wait()

	for i := 0; i < leaves; i++ {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			r.Remove(c)
		}(clients[i])
	}
	wg.Wait()

	assert.Equal(t, joins-leaves, r.Count())
}
