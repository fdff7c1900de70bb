// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a transcript stream is compressed.
type Compression uint8

const (
	// CompressionNone writes the CBOR sequence as is.
	CompressionNone Compression = iota

	// CompressionZstd wraps the stream in zstd frames at the default
	// level. Child output is text, which zstd compresses well.
	CompressionZstd

	// CompressionLZ4 wraps the stream in lz4 frames. Cheaper to write
	// than zstd at a lower ratio.
	CompressionLZ4
)

// Frame magic numbers, as they appear at the start of a stream.
var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression name. The empty string means
// CompressionNone.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown transcript compression %q (want none, zstd, or lz4)", name)
	}
}

// nopWriteCloser lets an uncompressed stream share the compressor code
// path. Closing it does not close the underlying writer.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// flusher is implemented by both stream compressors.
type flusher interface {
	Flush() error
}

// newCompressor wraps w. Closing the result finishes the final frame
// but does not close w.
func newCompressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported transcript compression %v", compression)
	}
}

// newDecompressor inspects the first bytes of r and returns a reader
// that yields the decompressed CBOR sequence, along with the
// compression that was detected.
func newDecompressor(r io.Reader) (io.Reader, func(), Compression, error) {
	buffered := bufio.NewReader(r)
	// A short or empty stream cannot carry a frame header; treat it as
	// plain CBOR and let the decoder report what it finds.
	magic, _ := buffered.Peek(len(zstdMagic))

	switch {
	case bytes.Equal(magic, zstdMagic):
		decoder, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("zstd reader: %w", err)
		}
		return decoder, decoder.Close, CompressionZstd, nil
	case bytes.Equal(magic, lz4Magic):
		return lz4.NewReader(buffered), func() {}, CompressionLZ4, nil
	default:
		return buffered, func() {}, CompressionNone, nil
	}
}
