// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the loopback listener used by the process
// bridge and classifies the errors that show up during normal connection
// teardown.
//
// [ListenLoopback] binds an ephemeral port on 127.0.0.1 and refuses
// anything else. The bridge channel is plaintext, so it must never be
// reachable from another host, and children are told only the port, so
// they always dial 127.0.0.1.
//
// [IsExpectedCloseError] separates EOF, closed-connection, broken-pipe,
// and connection-reset errors from real failures so that callers can log
// them at Debug instead of Error.
package netutil
