// Package server defines shared broadcast types and utility helpers that
// are reused across client and hub logic.
package server

import "strings"

// BroadcastMessage encapsulates a line being fanned out by the hub,
// including the originating session so it can be excluded from delivery.
// A nil Sender delivers to every registered session.
type BroadcastMessage struct {
	Sender  *Client
	Payload string
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}
