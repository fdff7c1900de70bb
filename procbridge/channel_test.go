// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/procbridge/lib/testutil"
)

func newTestChannel(t *testing.T, config Config) (*channel, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	if config.MaxLineSize == 0 {
		config.MaxLineSize = DefaultMaxLineSize
	}
	return newChannel(local, config, slog.New(slog.NewTextHandler(io.Discard, nil))), remote
}

func TestChannel_SendWritesLines(t *testing.T) {
	active, remote := newTestChannel(t, Config{})
	reader := bufio.NewReader(remote)

	go active.send("first")
	line, err := reader.ReadString('\n')
	if err != nil || line != "first\n" {
		t.Fatalf("ReadString = %q, %v", line, err)
	}
}

func TestChannel_ReadLoopDeliversUntilEOF(t *testing.T) {
	active, remote := newTestChannel(t, Config{})
	lines := make(chan string, 8)

	finished := make(chan struct{})
	go func() {
		active.readLoop(context.Background(), func(line string) { lines <- line })
		close(finished)
	}()

	remote.Write([]byte("alpha\nbeta\n"))
	remote.Close()

	if got := testutil.RequireReceive(t, lines, 5*time.Second, "first line"); got != "alpha" {
		t.Fatalf("first line = %q", got)
	}
	if got := testutil.RequireReceive(t, lines, 5*time.Second, "second line"); got != "beta" {
		t.Fatalf("second line = %q", got)
	}
	testutil.RequireClosed(t, finished, 5*time.Second, "read loop exit")
	testutil.RequireClosed(t, active.done(), time.Second, "teardown")

	if err := active.err(); !errors.Is(err, ErrTransportClosed) || !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want ErrTransportClosed wrapping io.EOF", err)
	}
}

func TestChannel_CancelStopsDelivery(t *testing.T) {
	active, remote := newTestChannel(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string, 8)

	finished := make(chan struct{})
	go func() {
		active.readLoop(ctx, func(line string) { lines <- line })
		close(finished)
	}()

	cancel()
	// net.Pipe writes block until read, so this write completes only if
	// the loop is still reading. The line must not be delivered.
	go remote.Write([]byte("late\n"))
	active.teardown(context.Canceled)

	testutil.RequireClosed(t, finished, 5*time.Second, "read loop exit")
	testutil.RequireNoReceive(t, lines, 50*time.Millisecond, "delivery after cancel")
	if err := active.err(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestChannel_WriteFailureTearsDown(t *testing.T) {
	active, remote := newTestChannel(t, Config{})
	remote.Close()

	active.send("nobody listening")

	testutil.RequireClosed(t, active.done(), time.Second, "teardown after write failure")
	if err := active.err(); !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("err = %v, want ErrTransportClosed", err)
	}

	// Later sends are dropped without blocking.
	active.send("dropped")
}

func TestChannel_WriteTimeoutTearsDown(t *testing.T) {
	active, _ := newTestChannel(t, Config{WriteTimeout: 20 * time.Millisecond})

	// The remote end never reads, so the pipe write blocks until the
	// deadline.
	active.send("stuck")

	testutil.RequireClosed(t, active.done(), time.Second, "teardown after write timeout")
	err := active.err()
	var netError net.Error
	if !errors.As(err, &netError) || !netError.Timeout() {
		t.Fatalf("err = %v, want a timeout", err)
	}
}

func TestChannel_TeardownKeepsFirstCause(t *testing.T) {
	active, _ := newTestChannel(t, Config{})
	first := errors.New("first")
	active.teardown(first)
	active.teardown(errors.New("second"))

	if err := active.err(); err != first {
		t.Fatalf("err = %v, want %v", err, first)
	}
}

func TestChannel_ErrNilWhileOpen(t *testing.T) {
	active, _ := newTestChannel(t, Config{})
	if err := active.err(); err != nil {
		t.Fatalf("err = %v on an open channel", err)
	}
}
