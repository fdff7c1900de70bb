// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/procbridge/lib/netutil"
)

// scannerInitialBuffer is the read buffer the line scanner starts with
// before growing toward the configured maximum.
const scannerInitialBuffer = 4096

// channel is the promoted connection: a line reader driven by readLoop
// and a line writer serialized by writeMu. It is owned by the bridge and
// torn down exactly once.
type channel struct {
	connection   net.Conn
	logger       *slog.Logger
	writeTimeout time.Duration
	maxLineSize  int

	writeMu sync.Mutex
	writer  *bufio.Writer

	teardownOnce sync.Once
	closed       chan struct{}
	cause        error
}

func newChannel(connection net.Conn, config Config, logger *slog.Logger) *channel {
	return &channel{
		connection:   connection,
		logger:       logger,
		writeTimeout: config.WriteTimeout,
		maxLineSize:  config.MaxLineSize,
		writer:       bufio.NewWriter(connection),
		closed:       make(chan struct{}),
	}
}

// send writes one line. Failures tear the channel down; they are not
// reported to the caller.
func (c *channel) send(line string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.sendLocked(line)
}

// sendLocked writes one line with writeMu held. Returns false if the
// channel is closed or the write failed.
func (c *channel) sendLocked(line string) bool {
	select {
	case <-c.closed:
		c.logger.Debug("dropping line sent after channel closed")
		return false
	default:
	}

	if err := c.writeLine(line); err != nil {
		c.teardown(fmt.Errorf("%w: write: %w", ErrTransportClosed, err))
		return false
	}
	return true
}

func (c *channel) writeLine(line string) error {
	if c.writeTimeout > 0 {
		if err := c.connection.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.writer.WriteString(line); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

// readLoop delivers each inbound line to deliver until the peer closes
// the connection, a read fails, or ctx is cancelled, then tears the
// channel down. No line is delivered once ctx is done.
func (c *channel) readLoop(ctx context.Context, deliver func(line string)) {
	scanner := bufio.NewScanner(c.connection)
	scanner.Buffer(make([]byte, 0, min(scannerInitialBuffer, c.maxLineSize)), c.maxLineSize)

	var cause error
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		deliver(scanner.Text())
	}

	switch {
	case ctx.Err() != nil:
		cause = ctx.Err()
	case scanner.Err() != nil:
		cause = fmt.Errorf("%w: read: %w", ErrTransportClosed, scanner.Err())
	default:
		cause = fmt.Errorf("%w: %w", ErrTransportClosed, io.EOF)
	}
	c.teardown(cause)
}

// teardown releases the writer and the connection. The first caller's
// cause is kept. It does not take writeMu, so it can run while a write
// is blocked; closing the connection unblocks that write.
func (c *channel) teardown(cause error) {
	c.teardownOnce.Do(func() {
		c.cause = cause
		close(c.closed)
		if err := c.connection.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
			c.logger.Debug("closing channel connection", "error", err)
		}

		switch {
		case errors.Is(cause, context.Canceled):
			c.logger.Debug("channel closed by bridge shutdown")
		case netutil.IsExpectedCloseError(cause):
			c.logger.Info("channel closed by peer")
		default:
			c.logger.Warn("channel failed", "error", cause)
		}
	})
}

// done is closed once teardown has run.
func (c *channel) done() <-chan struct{} { return c.closed }

// err returns the teardown cause, or nil while the channel is open.
func (c *channel) err() error {
	select {
	case <-c.closed:
		return c.cause
	default:
		return nil
	}
}
