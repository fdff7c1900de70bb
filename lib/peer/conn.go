// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/bureau-foundation/procbridge/lib/handshake"
	"github.com/bureau-foundation/procbridge/lib/netutil"
	"github.com/bureau-foundation/procbridge/lib/secret"
)

// MaxLineSize is the longest line ReadLine accepts.
const MaxLineSize = 1 << 20

// Conn is an authenticated connection to a bridge. ReadLine must be
// called from one goroutine at a time; WriteLine is safe for concurrent
// use.
type Conn struct {
	connection net.Conn
	scanner    *bufio.Scanner

	writeMu sync.Mutex
	writer  *bufio.Writer
}

// FromArgs connects using the trailing "<port> <key-base64>" arguments a
// bridge appends to the child's command line and dials that port on
// netutil.LoopbackHost. Earlier arguments are ignored.
func FromArgs(ctx context.Context, args []string) (*Conn, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("peer: expected <port> <key-base64> arguments, got %d argument(s)", len(args))
	}
	portArgument, keyArgument := args[len(args)-2], args[len(args)-1]

	port, err := strconv.Atoi(portArgument)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("peer: invalid port %q", portArgument)
	}
	key, err := handshake.Decode(keyArgument)
	if err != nil {
		return nil, fmt.Errorf("peer: %w", err)
	}
	defer secret.Zero(key)

	return Dial(ctx, net.JoinHostPort(netutil.LoopbackHost.String(), strconv.Itoa(port)), key)
}

// Dial connects to address and presents key. The bridge gives no
// response to the handshake: a wrong key shows up as io.EOF on the first
// ReadLine.
func Dial(ctx context.Context, address string, key []byte) (*Conn, error) {
	var dialer net.Dialer
	connection, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("peer: connecting to %s: %w", address, err)
	}
	if _, err := connection.Write(key); err != nil {
		connection.Close()
		return nil, fmt.Errorf("peer: sending key: %w", err)
	}
	return newConn(connection), nil
}

func newConn(connection net.Conn) *Conn {
	scanner := bufio.NewScanner(connection)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)
	return &Conn{
		connection: connection,
		scanner:    scanner,
		writer:     bufio.NewWriter(connection),
	}
}

// ReadLine returns the next line without its terminator. Returns io.EOF
// once the bridge has closed the connection.
func (c *Conn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// WriteLine sends line followed by a newline.
func (c *Conn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.WriteString(line); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

// NetConn returns the underlying connection, for deadlines.
func (c *Conn) NetConn() net.Conn { return c.connection }

// Close closes the connection.
func (c *Conn) Close() error { return c.connection.Close() }
