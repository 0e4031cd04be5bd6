// Package integration exercises the WebSocket gateway: health endpoint,
// origin enforcement, and full protocol interop between WebSocket and TCP
// sessions sharing one hub.
package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaycat/relaycat/test/testhelpers"
)

func dialWebSocket(t *testing.T, addr, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	return dialer.Dial("ws://"+addr+"/ws", headers)
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket frame: %v", err)
	}
	return string(data)
}

func TestGatewayHealthEndpoint(t *testing.T) {
	srv := testhelpers.StartChatServer(t)
	addr := testhelpers.StartGateway(t, srv, []string{"*"})

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("Failed to reach health endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "relaycat server is running") {
		t.Errorf("Unexpected health body: %q", body)
	}
}

// TestWebSocketClientJoinsChat verifies an upgraded connection speaks the
// same protocol as a TCP session and shares the same hub.
func TestWebSocketClientJoinsChat(t *testing.T) {
	srv := testhelpers.StartChatServer(t)
	addr := testhelpers.StartGateway(t, srv, []string{"*"})

	alice := testhelpers.Join(t, srv.Addr, "Alice")

	ws, resp, err := dialWebSocket(t, addr, "http://localhost:8080")
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer ws.Close()

	if prompt := readFrame(t, ws); prompt != "Enter name: " {
		t.Fatalf("Expected name prompt, got %q", prompt)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("Webby")); err != nil {
		t.Fatalf("Failed to send name: %v", err)
	}
	alice.ExpectLine("Webby joined")

	if err := ws.WriteMessage(websocket.TextMessage, []byte("hello from ws")); err != nil {
		t.Fatalf("Failed to send chat line: %v", err)
	}
	alice.ExpectLine("[Webby]: hello from ws")

	alice.SendLine("hi back")
	if frame := readFrame(t, ws); !strings.Contains(frame, "[Alice]: hi back") {
		t.Fatalf("Expected relayed chat line, got %q", frame)
	}
}

func TestWebSocketDisallowedOriginIsBlocked(t *testing.T) {
	srv := testhelpers.StartChatServer(t)
	addr := testhelpers.StartGateway(t, srv, []string{"http://localhost:8080"})

	ws, resp, err := dialWebSocket(t, addr, "http://evil.example.com")
	if err == nil {
		ws.Close()
		t.Fatal("Expected handshake to be rejected for disallowed origin")
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
}

func TestWebSocketListCommand(t *testing.T) {
	srv := testhelpers.StartChatServer(t)
	addr := testhelpers.StartGateway(t, srv, []string{"*"})

	ws, resp, err := dialWebSocket(t, addr, "http://localhost:8080")
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer ws.Close()

	if prompt := readFrame(t, ws); prompt != "Enter name: " {
		t.Fatalf("Expected name prompt, got %q", prompt)
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte("Webby")); err != nil {
		t.Fatalf("Failed to send name: %v", err)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("/list")); err != nil {
		t.Fatalf("Failed to send /list: %v", err)
	}
	if frame := readFrame(t, ws); !strings.Contains(frame, "Online: Webby") {
		t.Fatalf("Expected list reply, got %q", frame)
	}
}
