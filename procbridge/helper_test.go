// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/procbridge/lib/handshake"
	"github.com/bureau-foundation/procbridge/lib/peer"
)

// helperRoleVariable selects what the re-executed test binary does when
// a bridge launches it as the child.
const helperRoleVariable = "PROCBRIDGE_TEST_HELPER"

func TestMain(m *testing.M) {
	if role := os.Getenv(helperRoleVariable); role != "" {
		os.Exit(runHelper(role, os.Args[1:]))
	}
	os.Exit(m.Run())
}

// runHelper is the child side of the process tests. args is
// "<script> <port> <key-base64>".
func runHelper(role string, args []string) int {
	switch role {
	case "echo":
		conn, err := peer.FromArgs(context.Background(), args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer conn.Close()
		fmt.Println("connected")
		for {
			line, err := conn.ReadLine()
			if err != nil {
				return 0
			}
			if err := conn.WriteLine(line); err != nil {
				return 0
			}
		}

	case "idle":
		fmt.Println("ready")
		fmt.Fprintln(os.Stderr, "idle on stderr")
		time.Sleep(time.Hour)
		return 0

	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
		fmt.Println("ready")
		time.Sleep(time.Hour)
		return 0

	case "exit":
		fmt.Print("out-1\nout-2\npartial")
		fmt.Fprint(os.Stderr, "err-1\r\n")
		return 3

	default:
		fmt.Fprintf(os.Stderr, "unknown helper role %q\n", role)
		return 2
	}
}

// recordingObserver forwards every event to a buffered channel.
type recordingObserver struct {
	data   chan string
	output chan string
	errors chan string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		data:   make(chan string, 256),
		output: make(chan string, 256),
		errors: make(chan string, 256),
	}
}

func (r *recordingObserver) OnData(line string)   { r.data <- line }
func (r *recordingObserver) OnOutput(line string) { r.output <- line }
func (r *recordingObserver) OnError(line string)  { r.errors <- line }

// helperConfig launches this test binary in the given role.
func helperConfig(role string, observer Observer) Config {
	return Config{
		Interpreter: os.Args[0],
		Script:      "helper",
		Env:         []string{helperRoleVariable + "=" + role},
		Observer:    observer,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// freePort returns an IPv4 loopback port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding a free port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

// startBridge starts a bridge and registers Close as cleanup.
func startBridge(t *testing.T, config Config) *Bridge {
	t.Helper()
	bridge, err := Start(context.Background(), config)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { bridge.Close() })
	return bridge
}

// bridgeKey returns the raw handshake key a child would be given.
func bridgeKey(t *testing.T, bridge *Bridge) []byte {
	t.Helper()
	encoded, err := bridge.key.Encode()
	if err != nil {
		t.Fatalf("encoding key: %v", err)
	}
	raw, err := handshake.Decode(encoded)
	if err != nil {
		t.Fatalf("decoding key: %v", err)
	}
	return raw
}

// dialPeer connects to the bridge presenting key. The connection gets a
// read deadline so a test cannot hang on ReadLine.
func dialPeer(t *testing.T, bridge *Bridge, key []byte) *peer.Conn {
	t.Helper()
	conn, err := peer.Dial(context.Background(), bridge.Addr().String(), key)
	if err != nil {
		t.Fatalf("dialing bridge: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.NetConn().SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

// requireLine reads one line from conn and checks it.
func requireLine(t *testing.T, conn *peer.Conn, want string) {
	t.Helper()
	got, err := conn.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine (want %q): %v", want, err)
	}
	if got != want {
		t.Fatalf("ReadLine = %q, want %q", got, want)
	}
}

// requireRejected checks that the bridge closed conn without sending
// anything.
func requireRejected(t *testing.T, conn *peer.Conn) {
	t.Helper()
	line, err := conn.ReadLine()
	if err == nil {
		t.Fatalf("rejected connection received %q", line)
	}
	if netError, ok := err.(net.Error); ok && netError.Timeout() {
		t.Fatalf("rejected connection was never closed: %v", err)
	}
}
