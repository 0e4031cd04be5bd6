// Package server defines the wire-format helpers shared by sessions, the hub,
// and the operator console: envelope formatting, command replies, and the
// chat console log used for protocol-adjacent output.
package server

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// timestampLayout renders local time as MM/DD/YYYY-HH:MM:SS.
const timestampLayout = "01/02/2006-15:04:05"

const (
	namePrompt    = "Enter name: "
	anonymousName = "Anonymous"
	unknownName   = "Unknown"
	serverName    = "Server"

	helpReply    = "Commands: /nick <name>, /list, /help, /quit\n"
	unknownReply = "Unknown command. /help for commands.\n"
)

// timestamp renders the current local time in the protocol's layout.
func timestamp() string {
	return time.Now().Format(timestampLayout)
}

// chatlog carries chat traffic and presence lines to the server console.
// Unlike the default logger it adds no prefix of its own; these lines already
// start with a protocol timestamp.
var chatlog = log.New(os.Stdout, "", 0)

// chatLine formats a relayed chat message: "<ts> [<name>]: <text>\n".
func chatLine(ts, name, text string) string {
	return fmt.Sprintf("%s [%s]: %s\n", ts, name, text)
}

// serverLine formats an operator broadcast: "<ts> [Server]: <text>\n".
func serverLine(ts, text string) string {
	return fmt.Sprintf("%s [%s]: %s\n", ts, serverName, text)
}

func joinedNotice(name string) string {
	return name + " joined\n"
}

func leftNotice(name string) string {
	return name + " left\n"
}

func renameNotice(oldName, newName string) string {
	return fmt.Sprintf("%s is now %s\n", oldName, newName)
}

func listReply(names []string) string {
	return "Online: " + strings.Join(names, ", ") + "\n"
}
