// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package procbridge runs an interpreter script as a child process and
// talks to it over a private, authenticated, line-oriented loopback
// socket.
//
// [Start] binds an ephemeral port on 127.0.0.1, generates a random
// handshake key, starts the accept loop, and launches
//
//	<interpreter> <script> <port> <key-base64>
//
// The child connects back and writes the raw key bytes before anything
// else. The first connection that presents the key is promoted to the
// bridge's channel and the listener is closed; connections with a wrong
// or short key are closed without a reply. After promotion both sides
// exchange UTF-8 text, one message per newline-terminated line.
//
// [Bridge.Send] can be called at any time. Lines sent before the child
// has connected are queued and written, in order, ahead of anything sent
// afterwards. Send never reports transport errors: a failed channel is
// torn down, and the only visible effect is that [Observer.OnData] stops
// firing and [Bridge.Disconnected] is closed. A torn-down channel is
// never re-established; create a new Bridge instead.
//
// The child's stdout and stderr are split into lines and delivered to
// [Observer.OnOutput] and [Observer.OnError] for as long as the process
// runs, independent of the socket.
//
// [Bridge.Close] must be called. It cancels the accept and read loops,
// closes the listener and the channel, terminates the child's process
// group, and waits (bounded) for background goroutines before releasing
// the key. Close is idempotent and safe to call from any goroutine.
// Cancelling the context passed to Start has the same effect.
package procbridge
