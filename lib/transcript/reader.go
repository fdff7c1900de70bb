// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/procbridge/lib/codec"
)

// Reader iterates over the records of a transcript.
type Reader struct {
	decoder     *codec.Decoder
	compression Compression
	release     func()
	file        io.Closer
}

// NewReader returns a Reader over r, detecting the compression from the
// stream's first bytes.
func NewReader(r io.Reader) (*Reader, error) {
	decompressed, release, compression, err := newDecompressor(r)
	if err != nil {
		return nil, err
	}
	return &Reader{
		decoder:     codec.NewDecoder(decompressed),
		compression: compression,
		release:     release,
	}, nil
}

// Open opens the transcript at path. Close closes the file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.file = file
	return reader, nil
}

// Compression returns the compression detected when the Reader was
// created.
func (r *Reader) Compression() Compression { return r.compression }

// Next returns the next record. It returns io.EOF after the last
// record, and io.ErrUnexpectedEOF if the stream ends inside a record.
func (r *Reader) Next() (Record, error) {
	var record Record
	if err := r.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("decoding transcript record: %w", err)
	}
	if !record.Stream.Valid() {
		return Record{}, fmt.Errorf("transcript record has unknown stream %q", record.Stream)
	}
	return record, nil
}

// ReadAll returns every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		record, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// Close releases the decompressor and, for a Reader from Open, closes
// the file.
func (r *Reader) Close() error {
	r.release()
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
