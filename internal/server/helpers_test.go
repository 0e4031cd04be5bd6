package server

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory line transport for exercising the session
// state machine and hub fan-out without real sockets.
type fakeTransport struct {
	mu         sync.Mutex
	inbound    chan string
	written    []string
	failWrite  bool
	blockWrite chan struct{}
	closeOnce  sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan string, 16),
	}
}

// push feeds one inbound line to the session, as if the peer had sent it.
func (t *fakeTransport) push(line string) {
	t.inbound <- line
}

func (t *fakeTransport) ReadLine() (string, error) {
	line, ok := <-t.inbound
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (t *fakeTransport) WriteString(s string) error {
	t.mu.Lock()
	block := t.blockWrite
	t.mu.Unlock()
	if block != nil {
		<-block
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWrite {
		return errors.New("simulated write failure")
	}
	t.written = append(t.written, s)
	return nil
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.inbound)
	})
	return nil
}

func (t *fakeTransport) RemoteAddr() string {
	return "192.0.2.1:40000"
}

func (t *fakeTransport) setFailWrite(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failWrite = fail
}

// stallWrites makes subsequent writes block until the returned release
// function is called, simulating a peer that stops reading.
func (t *fakeTransport) stallWrites() (release func()) {
	gate := make(chan struct{})
	t.mu.Lock()
	t.blockWrite = gate
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// writes returns an independent copy of everything delivered so far.
func (t *fakeTransport) writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.written))
	copy(out, t.written)
	return out
}

// countWrites reports how many delivered lines contain substr.
func (t *fakeTransport) countWrites(substr string) int {
	n := 0
	for _, w := range t.writes() {
		if strings.Contains(w, substr) {
			n++
		}
	}
	return n
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(func() {
		_ = h.Shutdown(time.Second)
	})
	return h
}

// joinClient registers a session and, when name is non-empty, completes the
// handshake before returning.
func joinClient(t *testing.T, h *Hub, name string) (*Client, *fakeTransport) {
	t.Helper()

	ft := newFakeTransport()
	c := NewClient(ft, h, ft.RemoteAddr())
	h.Register(c)

	require.Eventually(t, func() bool {
		return ft.countWrites(namePrompt) == 1
	}, 2*time.Second, 10*time.Millisecond, "session was never prompted for a name")

	if name != "" {
		ft.push(name + "\n")
		require.Eventually(t, func() bool {
			return h.registry.LookupName(c) == name
		}, 2*time.Second, 10*time.Millisecond, "handshake did not complete")
	}

	return c, ft
}
