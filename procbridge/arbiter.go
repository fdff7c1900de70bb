// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/bureau-foundation/procbridge/lib/netutil"
)

// acceptLoop accepts connections until one is promoted, the listener is
// closed, or the bridge is cancelled. Each connection is verified on its
// own goroutine so that a peer that never sends its key cannot hold up
// the real child. The listener is closed whenever the loop exits.
func (b *Bridge) acceptLoop() {
	defer close(b.acceptDone)
	defer b.listener.Close()

	for {
		connection, err := b.listener.Accept()
		if err != nil {
			switch {
			case b.ctx.Err() != nil, errors.Is(err, net.ErrClosed):
				b.logger.Debug("accept loop stopped")
			default:
				b.logger.Warn("accept failed, no longer listening", "error", err)
			}
			return
		}

		if b.promoted() {
			connection.Close()
			return
		}

		b.workers.Add(1)
		go func() {
			defer b.workers.Done()
			b.handleConnection(connection)
		}()
	}
}

// handleConnection runs the handshake on one accepted connection and
// promotes it if the key matches and no channel exists yet. Rejected
// connections are closed without a reply.
func (b *Bridge) handleConnection(connection net.Conn) {
	logger := b.logger.With("remote_addr", connection.RemoteAddr().String())
	logger.Debug("connection accepted")

	stop := context.AfterFunc(b.ctx, func() { connection.Close() })
	err := b.key.Verify(connection, b.config.HandshakeTimeout)
	if !stop() {
		logger.Debug("handshake abandoned: bridge closing")
		return
	}

	if err != nil {
		logger.Debug("handshake rejected", "error", err, "timeout", netutil.IsTimeout(err))
		connection.Close()
		return
	}

	if !b.promote(connection, logger) {
		logger.Debug("rejecting authenticated connection: channel already established")
		connection.Close()
	}
}

// promoted reports whether a channel has been established.
func (b *Bridge) promoted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel != nil
}

// promote makes connection the bridge's channel. It takes the channel's
// write lock before publishing it, so any Send that sees the new channel
// waits until the queued lines have been written. Returns false if a
// channel already exists or the bridge is closing.
func (b *Bridge) promote(connection net.Conn, logger *slog.Logger) bool {
	b.mu.Lock()
	if b.state == StateDisposed || b.channel != nil {
		b.mu.Unlock()
		return false
	}
	active := newChannel(connection, b.config, logger)
	active.writeMu.Lock()
	b.channel = active
	pending := b.queue.Drain()
	b.mu.Unlock()

	// One channel per bridge: stop listening. Connections already
	// mid-handshake are rejected when they finish.
	b.listener.Close()

	for _, line := range pending {
		if !active.sendLocked(line) {
			break
		}
	}
	active.writeMu.Unlock()

	logger.Info("channel established", "queued_lines", len(pending))
	close(b.connected)

	go func() {
		defer close(b.readerDone)
		active.readLoop(b.ctx, b.deliverData)
		b.closeDisconnected()
	}()
	return true
}
