// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/procbridge/lib/clock"
	"github.com/bureau-foundation/procbridge/lib/handshake"
	"github.com/bureau-foundation/procbridge/lib/netutil"
)

const (
	// DefaultHandshakeTimeout bounds how long an accepted connection may
	// take to present the key.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds how long Close waits for the child
	// to exit and for background goroutines to finish.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultMaxLineSize is the longest line accepted from the socket.
	// Longer stdout/stderr lines are delivered in chunks of this size.
	DefaultMaxLineSize = 1 << 20

	// processWaitDelay bounds how long stdout/stderr copying may outlive
	// the child, for example when a grandchild inherited the pipes.
	processWaitDelay = 2 * time.Second
)

// Config describes the child process and the bridge around it. Only
// Script is required.
type Config struct {
	// Interpreter is the executable that runs Script. Empty means the
	// first of python3 or python found on PATH.
	Interpreter string

	// Script is passed as the interpreter's first argument, followed by
	// the port and the base64 key.
	Script string

	// Dir is the child's working directory. Empty means the current
	// directory.
	Dir string

	// Env is appended to the host environment for the child.
	Env []string

	// ListenAddress is the address to bind. The host must be 127.0.0.1,
	// the address the child dials; only the port may vary. Empty means
	// an ephemeral port.
	ListenAddress string

	// KeySize is the handshake key length in bytes. Zero means
	// handshake.DefaultKeySize.
	KeySize int

	// HandshakeTimeout bounds the key read on each accepted connection.
	// Zero means DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// WriteTimeout, if positive, bounds each line write to the channel.
	// A write that times out tears the channel down.
	WriteTimeout time.Duration

	// KillGrace is how long Close waits after SIGTERM before sending
	// SIGKILL. Zero kills immediately.
	KillGrace time.Duration

	// ShutdownTimeout bounds each of Close's waits. Zero means
	// DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// MaxLineSize bounds line length on the socket and chunks long
	// stdout/stderr lines. Zero means DefaultMaxLineSize.
	MaxLineSize int

	// Observer receives socket lines and child output. Nil discards
	// them.
	Observer Observer

	// Logger receives structured log output. Nil means slog.Default().
	// Per-connection events are logged at Debug; lifecycle events at
	// Info.
	Logger *slog.Logger

	// Clock times the kill grace period and shutdown waits. Nil means
	// clock.Real().
	Clock clock.Clock

	// Random is the entropy source for the key. Nil means crypto/rand.
	Random io.Reader
}

// withDefaults validates c and fills in zero-valued fields.
func (c Config) withDefaults() (Config, error) {
	var errs []error
	if c.Script == "" {
		errs = append(errs, errors.New("Script is required"))
	}
	if c.KeySize < 0 {
		errs = append(errs, fmt.Errorf("KeySize must not be negative, got %d", c.KeySize))
	}
	if c.MaxLineSize < 0 {
		errs = append(errs, fmt.Errorf("MaxLineSize must not be negative, got %d", c.MaxLineSize))
	}
	if err := netutil.CheckListenAddress(c.ListenAddress); err != nil {
		errs = append(errs, fmt.Errorf("ListenAddress: %w", err))
	}
	for name, value := range map[string]time.Duration{
		"HandshakeTimeout": c.HandshakeTimeout,
		"WriteTimeout":     c.WriteTimeout,
		"KillGrace":        c.KillGrace,
		"ShutdownTimeout":  c.ShutdownTimeout,
	} {
		if value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, value))
		}
	}
	if len(errs) > 0 {
		return c, fmt.Errorf("procbridge: invalid config: %w", errors.Join(errs...))
	}

	if c.KeySize == 0 {
		c.KeySize = handshake.DefaultKeySize
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = DefaultMaxLineSize
	}
	if c.Observer == nil {
		c.Observer = ObserverFuncs{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	return c, nil
}
