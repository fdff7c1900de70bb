// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Procbridge-transcript prints a session transcript recorded by
// procbridge --transcript. Compression is detected automatically.
// Output is one line per record, JSON Lines with --json, or CBOR
// diagnostic notation with --diagnose.
package main
