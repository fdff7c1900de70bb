// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bureau-foundation/procbridge/lib/clock"
	"github.com/bureau-foundation/procbridge/lib/codec"
)

// Recorder writes every observed line to a transcript. It implements
// the bridge's Observer interface and is safe for concurrent use, since
// the bridge delivers the three streams from different goroutines.
//
// Observer methods cannot return errors, so the first write failure is
// kept and reported by Err and Close; later lines are discarded.
type Recorder struct {
	clock clock.Clock

	mu         sync.Mutex
	compressor io.WriteCloser
	encoder    *codec.Encoder
	file       io.Closer
	err        error
	closed     bool
}

// NewRecorder returns a Recorder that writes to w. Close finishes the
// compressed stream but does not close w.
func NewRecorder(w io.Writer, compression Compression, clk clock.Clock) (*Recorder, error) {
	compressor, err := newCompressor(w, compression)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{
		clock:      clk,
		compressor: compressor,
		encoder:    codec.NewEncoder(compressor),
	}, nil
}

// Create opens path for writing, truncating any existing file, and
// returns a Recorder that owns it. Close closes the file.
func Create(path string, compression Compression, clk clock.Clock) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating transcript: %w", err)
	}
	recorder, err := NewRecorder(file, compression, clk)
	if err != nil {
		file.Close()
		return nil, err
	}
	recorder.file = file
	return recorder, nil
}

// OnData records a line the child wrote to the socket.
func (r *Recorder) OnData(line string) { r.record(StreamData, line) }

// OnOutput records a line of the child's standard output.
func (r *Recorder) OnOutput(line string) { r.record(StreamStdout, line) }

// OnError records a line of the child's standard error.
func (r *Recorder) OnError(line string) { r.record(StreamStderr, line) }

func (r *Recorder) record(stream Stream, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	record := Record{Time: r.clock.Now(), Stream: stream, Line: line}
	if err := r.encoder.Encode(record); err != nil {
		r.err = fmt.Errorf("writing transcript record: %w", err)
	}
}

// Flush pushes buffered compressed data to the underlying writer so
// that a concurrent reader sees every record written so far.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil || r.closed {
		return r.err
	}
	if f, ok := r.compressor.(flusher); ok {
		if err := f.Flush(); err != nil {
			r.err = fmt.Errorf("flushing transcript: %w", err)
		}
	}
	return r.err
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close finishes the stream and, for a Recorder from Create, closes the
// file. Lines observed after Close are discarded. Returns the first
// error seen over the Recorder's lifetime.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	r.closed = true

	var errs []error
	if r.err != nil {
		errs = append(errs, r.err)
	}
	if err := r.compressor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("finishing transcript stream: %w", err))
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing transcript: %w", err))
		}
	}
	r.err = errors.Join(errs...)
	return r.err
}
