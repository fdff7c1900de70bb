// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handshake implements the one-shot key exchange that
// authenticates a child process's connection back to its bridge.
//
// The bridge generates a [Key] of random bytes (128 by default), passes
// it to the child as a base64 command-line argument, and expects the
// child's first write on the socket to be the raw key bytes with no
// framing. [Key.Verify] reads exactly that many bytes and compares them.
// Any difference, short read, or deadline expiry fails with
// [ErrMismatch], and the bridge closes the connection without replying.
//
// The key lives in a [secret.Buffer] and is never logged. Logs carry
// [Key.Fingerprint], a truncated BLAKE3 digest, so the host and child
// sides of a session can be correlated.
package handshake
