// Package server runs the operator console: the server process's own input
// stream, used for admin broadcasts and shutdown.
package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
)

const consoleHelp = "Commands: /list, /quit, /help, or type message to broadcast"

// Console reads operator input lines and either answers locally (/list,
// /help), initiates process-wide shutdown (/quit), or broadcasts free text
// to every session as a [Server]-tagged message.
type Console struct {
	hub      *Hub
	in       io.Reader
	out      io.Writer
	shutdown func()
}

// NewConsole wires the operator console to the hub. shutdown is invoked on
// /quit and is expected to cancel the server's root context.
func NewConsole(hub *Hub, in io.Reader, out io.Writer, shutdown func()) *Console {
	return &Console{
		hub:      hub,
		in:       in,
		out:      out,
		shutdown: shutdown,
	}
}

// Run processes operator input until the input stream ends, /quit is
// entered, or the context is cancelled.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			c.shutdown()
			return
		case "/list":
			names := c.hub.Names()
			rendered := "None"
			if len(names) > 0 {
				rendered = strings.Join(names, ", ")
			}
			fmt.Fprintf(c.out, "Online users (%d): %s\n", len(names), rendered)
		case "/help":
			fmt.Fprintln(c.out, consoleHelp)
		default:
			fmt.Fprint(c.out, c.hub.BroadcastServerMessage(line))
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Console input error: %v", err)
	}
}
