// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript records a bridge session to a file and reads it
// back.
//
// A transcript is a CBOR sequence of [Record] values, one per observed
// line, optionally wrapped in a zstd or lz4 frame stream. A [Recorder]
// implements the bridge's observer interface, so attaching one is a
// matter of adding it to the bridge's observers:
//
//	recorder, err := transcript.Create(path, transcript.CompressionZstd, clock.Real())
//	config.Observer = procbridge.MultiObserver{display, recorder}
//	...
//	defer recorder.Close()
//
// [NewReader] detects the compression from the stream's leading magic
// bytes, so readers never need to be told how a transcript was written.
package transcript
