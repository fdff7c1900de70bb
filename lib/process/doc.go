// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the procbridge
// binaries. It centralizes the raw I/O that happens before the
// structured logger exists or after main() has failed:
//
//   - Fatal error reporting to stderr.
//   - Exit-code propagation, so a host that exits because its child
//     exited reports the child's status.
package process
