// Command client is a minimal terminal client for the relaycat server. It
// relays stdin lines to the server and prints everything the server sends.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Server address")
	port := flag.Int("port", 2006, "Server port")
	flag.Parse()

	conn, err := net.Dial("tcp", net.JoinHostPort(*host, strconv.Itoa(*port)))
	if err != nil {
		fmt.Printf("Connection refused. Is the server running on %s:%d?\n", *host, *port)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1024)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				fmt.Print(string(buf[:n]))
			}
			if err != nil {
				fmt.Println("\nDisconnected from server.")
				return
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := fmt.Fprintln(conn, line); err != nil {
			break
		}
		if strings.TrimSpace(line) == "/quit" {
			break
		}
	}

	conn.Close()
	<-done
}
