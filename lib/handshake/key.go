// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handshake

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/procbridge/lib/secret"
)

// DefaultKeySize is the key length in bytes when none is configured.
const DefaultKeySize = 128

// fingerprintSize is the number of BLAKE3 digest bytes kept for logs.
const fingerprintSize = 8

// ErrClosed reports use of a key after Close.
var ErrClosed = errors.New("handshake: key closed")

// ErrMismatch reports that a connection did not present the key. The
// wrapped error, when present, explains a short read or timeout.
var ErrMismatch = errors.New("handshake: key mismatch")

// Key is the per-bridge shared secret. It is immutable after Generate
// and safe for concurrent Verify calls.
type Key struct {
	buffer      *secret.Buffer
	fingerprint string

	// mu keeps Close from unmapping the buffer under a comparison
	// running on another goroutine.
	mu     sync.RWMutex
	closed bool
}

// Generate creates a key of size random bytes from random. A nil random
// means crypto/rand. The caller must Close the key.
func Generate(size int, random io.Reader) (*Key, error) {
	if size <= 0 {
		return nil, fmt.Errorf("handshake: key size must be positive, got %d", size)
	}
	buffer, err := secret.NewRandom(size, random)
	if err != nil {
		return nil, fmt.Errorf("handshake: generating key: %w", err)
	}
	digest := blake3.Sum256(buffer.Bytes())
	return &Key{
		buffer:      buffer,
		fingerprint: hex.EncodeToString(digest[:fingerprintSize]),
	}, nil
}

// Decode parses the base64 form produced by Encode. Child processes use
// it to recover the raw bytes they must present.
func Decode(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("handshake: decoding key: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("handshake: empty key")
	}
	return raw, nil
}

// Len returns the key length in bytes.
func (k *Key) Len() int { return k.buffer.Len() }

// Encode returns the key as standard base64 for the child's argv.
// Returns ErrClosed after Close.
func (k *Key) Encode() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return "", ErrClosed
	}
	return base64.StdEncoding.EncodeToString(k.buffer.Bytes()), nil
}

// Fingerprint returns a short hex digest of the key, safe to log.
func (k *Key) Fingerprint() string { return k.fingerprint }

// Verify reads exactly Len bytes from connection and checks them against
// the key. A non-zero timeout bounds the read with a deadline that is
// cleared again on success. Returns nil on a match and an error wrapping
// ErrMismatch otherwise.
func (k *Key) Verify(connection net.Conn, timeout time.Duration) error {
	if timeout > 0 {
		if err := connection.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("%w: setting deadline: %v", ErrMismatch, err)
		}
	}

	presented := make([]byte, k.Len())
	defer secret.Zero(presented)
	if _, err := io.ReadFull(connection, presented); err != nil {
		return fmt.Errorf("%w: %w", ErrMismatch, err)
	}
	if !k.equal(presented) {
		return ErrMismatch
	}

	if timeout > 0 {
		if err := connection.SetReadDeadline(time.Time{}); err != nil {
			return fmt.Errorf("clearing handshake deadline: %w", err)
		}
	}
	return nil
}

func (k *Key) equal(presented []byte) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return !k.closed && k.buffer.Equal(presented)
}

// Close zeros and releases the key material. Close is idempotent.
func (k *Key) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return k.buffer.Close()
}
