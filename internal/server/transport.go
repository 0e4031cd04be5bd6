// Package server abstracts the byte stream under a session into a line
// transport so TCP sockets and WebSocket connections share one protocol
// state machine.
package server

import (
	"bufio"
	"io"
	"net"
	"time"
)

// readBufferSize is the initial buffer for inbound line framing.
const readBufferSize = 1024

// lineTransport produces and consumes whole UTF-8 text lines over a byte
// stream. ReadLine returns io.EOF on orderly peer shutdown; any other error
// means abnormal termination. WriteString applies the transport's per-send
// deadline so one unresponsive peer cannot stall fan-out to the rest.
type lineTransport interface {
	ReadLine() (string, error)
	WriteString(s string) error
	Close() error
	RemoteAddr() string
}

// tcpTransport frames a TCP stream into newline-delimited messages. Reads
// are buffered and split on '\n' explicitly, since stream reads may coalesce
// or fragment messages arbitrarily.
type tcpTransport struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeTimeout time.Duration
}

func newTCPTransport(conn net.Conn, writeTimeout time.Duration) *tcpTransport {
	return &tcpTransport{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, readBufferSize),
		writeTimeout: writeTimeout,
	}
}

// ReadLine blocks until a complete line, EOF, or a read error. A final
// unterminated line before EOF is delivered as a normal message; the
// following call reports the EOF.
func (t *tcpTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (t *tcpTransport) WriteString(s string) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(t.conn, s)
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
