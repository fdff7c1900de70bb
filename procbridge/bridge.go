// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/procbridge/lib/clock"
	"github.com/bureau-foundation/procbridge/lib/handshake"
	"github.com/bureau-foundation/procbridge/lib/netutil"
)

// State is a bridge's lifecycle position.
type State int32

const (
	// StateCreated covers construction: the listener is bound and the
	// child is being launched.
	StateCreated State = iota

	// StateRunning means the child has been launched. The channel may
	// or may not be established yet.
	StateRunning

	// StateDisposed is terminal. Close has been called.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Bridge owns one child process, its listener, and at most one promoted
// channel for its entire lifetime.
type Bridge struct {
	config   Config
	logger   *slog.Logger
	clock    clock.Clock
	observer Observer

	key      *handshake.Key
	listener *net.TCPListener
	port     int
	process  *childProcess

	// ctx is cancelled by Close and shared by the accept loop, the
	// handshake workers, and the read loop.
	ctx    context.Context
	cancel context.CancelFunc

	// detachParent stops the context.AfterFunc registered on Start's
	// context.
	detachParent func() bool

	mu      sync.Mutex
	state   State
	channel *channel
	queue   sendQueue

	acceptDone       chan struct{}
	workers          sync.WaitGroup

	// deliverMu guards delivering, which is true while the read loop is
	// inside Observer.OnData. Close waits for readerDone only when no
	// callback is running, so a callback can close the bridge.
	deliverMu  sync.Mutex
	delivering bool
	readerDone chan struct{}

	connected        chan struct{}
	disconnected     chan struct{}
	disconnectedOnce sync.Once
	closeOnce        sync.Once
}

// Start binds the listener, generates the key, starts accepting, and
// launches the child. If the child cannot be started the listener and
// accept loop are torn down and a *LaunchError is returned.
//
// Cancelling ctx closes the bridge. The caller must call Close in any
// case.
func Start(ctx context.Context, config Config) (*Bridge, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	interpreter, err := resolveInterpreter(config.Interpreter)
	if err != nil {
		return nil, &LaunchError{Interpreter: config.Interpreter, Script: config.Script, Err: err}
	}

	listener, port, err := netutil.ListenLoopback(config.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("procbridge: %w", err)
	}

	key, err := handshake.Generate(config.KeySize, config.Random)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("procbridge: %w", err)
	}
	encodedKey, err := key.Encode()
	if err != nil {
		listener.Close()
		key.Close()
		return nil, fmt.Errorf("procbridge: %w", err)
	}

	bridgeContext, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b := &Bridge{
		config:       config,
		logger:       config.Logger.With("port", port, "key_fingerprint", key.Fingerprint()),
		clock:        config.Clock,
		observer:     config.Observer,
		key:          key,
		listener:     listener,
		port:         port,
		ctx:          bridgeContext,
		cancel:       cancel,
		state:        StateCreated,
		acceptDone:   make(chan struct{}),
		readerDone:   make(chan struct{}),
		connected:    make(chan struct{}),
		disconnected: make(chan struct{}),
	}

	go b.acceptLoop()

	process, err := launchProcess(config, interpreter, port, encodedKey, b.logger)
	if err != nil {
		b.abortStart()
		return nil, &LaunchError{Interpreter: interpreter, Script: config.Script, Err: err}
	}

	// The AfterFunc may fire before it returns if ctx is already done;
	// holding mu until detachParent is set keeps dispose from reading it
	// early.
	b.mu.Lock()
	b.process = process
	b.state = StateRunning
	b.detachParent = context.AfterFunc(ctx, func() { b.Close() })
	b.mu.Unlock()

	b.logger.Info("bridge started",
		"interpreter", interpreter,
		"script", config.Script,
		"pid", process.pid(),
	)
	return b, nil
}

// abortStart undoes a Start whose launch failed. No process exists, so
// only the accept loop, listener, and key need releasing.
func (b *Bridge) abortStart() {
	b.mu.Lock()
	b.state = StateDisposed
	b.mu.Unlock()

	b.cancel()
	b.listener.Close()
	<-b.acceptDone
	b.workers.Wait()
	b.closeDisconnected()
	b.key.Close()
}

// Send writes line, followed by a newline, to the child. Before the
// channel exists the line is queued; queued lines are delivered in order
// ahead of anything sent after the channel is established. Send blocks
// while the line is written but never reports transport errors. Lines
// sent after the channel has closed, or after Close, are dropped.
//
// line should not contain a newline; if it does, the child reads it as
// several lines.
func (b *Bridge) Send(line string) {
	b.mu.Lock()
	if b.state == StateDisposed {
		b.mu.Unlock()
		b.logger.Debug("dropping line sent after close")
		return
	}
	active := b.channel
	if active == nil {
		b.queue.Enqueue(line)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	active.send(line)
}

// Close disposes the bridge: it cancels the accept and read loops,
// closes the listener and the channel, terminates the child, waits
// (bounded by Config.ShutdownTimeout) for background goroutines, and
// releases the key. Close is idempotent, safe for concurrent use, and
// always returns nil.
//
// Close does not wait for an OnData callback that is already running,
// so it may be called from inside one. No OnData callback starts after
// Close has begun. Calling Close from OnOutput or OnError makes it wait
// out the shutdown timeout for the child's output to drain.
func (b *Bridge) Close() error {
	b.closeOnce.Do(b.dispose)
	return nil
}

func (b *Bridge) dispose() {
	b.mu.Lock()
	b.state = StateDisposed
	detachParent := b.detachParent
	active := b.channel
	process := b.process
	pending := b.queue.Len()
	b.mu.Unlock()

	if detachParent != nil {
		detachParent()
	}

	b.cancel()
	waitReader := active != nil && !b.inDataCallback()
	if err := b.listener.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
		b.logger.Debug("closing listener", "error", err)
	}
	if active != nil {
		active.teardown(context.Canceled)
	}
	if process != nil {
		process.terminate(b.config.KillGrace, b.config.ShutdownTimeout, b.clock)
	}

	loopsDone := make(chan struct{})
	go func() {
		<-b.acceptDone
		b.workers.Wait()
		if waitReader {
			<-b.readerDone
		}
		close(loopsDone)
	}()
	select {
	case <-loopsDone:
	case <-b.clock.After(b.config.ShutdownTimeout):
		b.logger.Warn("background goroutines still running after shutdown timeout",
			"timeout", b.config.ShutdownTimeout)
	}

	b.closeDisconnected()
	if err := b.key.Close(); err != nil {
		b.logger.Warn("releasing handshake key", "error", err)
	}

	if pending > 0 {
		b.logger.Info("bridge closed", "undelivered", pending)
	} else {
		b.logger.Info("bridge closed")
	}
}

// deliverData passes line to Observer.OnData unless the bridge is
// closing.
func (b *Bridge) deliverData(line string) {
	b.deliverMu.Lock()
	if b.ctx.Err() != nil {
		b.deliverMu.Unlock()
		return
	}
	b.delivering = true
	b.deliverMu.Unlock()

	defer func() {
		b.deliverMu.Lock()
		b.delivering = false
		b.deliverMu.Unlock()
	}()
	b.observer.OnData(line)
}

// inDataCallback reports whether an OnData callback is running. Once the
// bridge context is cancelled a false result is final.
func (b *Bridge) inDataCallback() bool {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	return b.delivering
}

// Addr returns the listener's address. The listener is closed once a
// channel is promoted, but the address still identifies the port the
// child was given.
func (b *Bridge) Addr() net.Addr { return b.listener.Addr() }

// Port returns the loopback port passed to the child.
func (b *Bridge) Port() int { return b.port }

// PID returns the child's process ID.
func (b *Bridge) PID() int { return b.process.pid() }

// Fingerprint returns a short digest of the handshake key, safe to log.
func (b *Bridge) Fingerprint() string { return b.key.Fingerprint() }

// State returns the bridge's current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Connected is closed when a connection has been promoted to the
// channel and the queued lines have been written.
func (b *Bridge) Connected() <-chan struct{} { return b.connected }

// Disconnected is closed when the channel has been torn down, or when
// the bridge is closed without ever having had a channel. No OnData call
// starts after it is closed.
func (b *Bridge) Disconnected() <-chan struct{} { return b.disconnected }

// Exited is closed when the child process has exited and its remaining
// output has been delivered.
func (b *Bridge) Exited() <-chan struct{} { return b.process.exited }

// ExitErr returns the child's wait error once Exited is closed, and nil
// before that.
func (b *Bridge) ExitErr() error {
	select {
	case <-b.process.exited:
		return b.process.waitError
	default:
		return nil
	}
}

// ChannelErr returns why the channel was torn down: an error wrapping
// ErrTransportClosed, or context.Canceled after Close. Returns nil while
// the channel is open or before one is established.
func (b *Bridge) ChannelErr() error {
	b.mu.Lock()
	active := b.channel
	b.mu.Unlock()
	if active == nil {
		return nil
	}
	return active.err()
}

func (b *Bridge) closeDisconnected() {
	b.disconnectedOnce.Do(func() { close(b.disconnected) })
}
