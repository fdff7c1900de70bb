// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"fmt"
	"time"
)

// Stream names where a recorded line came from.
type Stream string

const (
	// StreamData is a line the child wrote to the socket channel.
	StreamData Stream = "data"

	// StreamStdout is a line of the child's standard output.
	StreamStdout Stream = "stdout"

	// StreamStderr is a line of the child's standard error.
	StreamStderr Stream = "stderr"
)

// Valid reports whether s is one of the defined streams.
func (s Stream) Valid() bool {
	switch s {
	case StreamData, StreamStdout, StreamStderr:
		return true
	default:
		return false
	}
}

// Record is one observed line.
type Record struct {
	Time   time.Time `cbor:"time"`
	Stream Stream    `cbor:"stream"`
	Line   string    `cbor:"line"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s %-6s %s", r.Time.Format(time.RFC3339Nano), r.Stream, r.Line)
}
