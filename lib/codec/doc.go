// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration used
// for on-disk session transcripts.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same record always produces identical bytes. Transcripts are CBOR
// sequences (RFC 8742): records are written back to back with no
// framing, and a reader decodes until io.EOF.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For streams:
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types that are only ever serialized as CBOR use `cbor` struct tags.
package codec
