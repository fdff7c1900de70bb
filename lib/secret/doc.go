// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material outside the Go heap.
//
// [Buffer] is backed by an anonymous mmap region that is locked into RAM
// (mlock) and excluded from core dumps (MADV_DONTDUMP). The garbage
// collector never sees the region, so it cannot leave copies of the key
// behind. On Close the region is zeroed, unlocked, and unmapped.
//
// Constructors:
//
//   - [New] -- zero-filled buffer of a given size
//   - [NewRandom] -- buffer filled from crypto/rand
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//
// [Buffer.Equal] compares in constant time. Access after Close panics.
// Close is idempotent.
package secret
