// Package server implements the relaycat chat broadcaster: a TCP accept
// loop, the shared client registry, the hub that fans messages out to every
// connected session, the line-oriented session state machine, the operator
// console, and an optional WebSocket gateway speaking the same protocol.
//
// The implementation is organized into specialized files for configuration,
// registry, hub, client sessions, transports, and the gateway to keep the
// codebase maintainable and testable as the project grows.
package server
