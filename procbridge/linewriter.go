// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"bytes"
	"sync"
	"unicode/utf8"
)

// lineWriter is an io.Writer that splits what is written into lines and
// hands each one, without its terminator, to emit. It is installed as the
// child's stdout or stderr. Lines longer than maxLineSize are emitted in
// pieces of at most maxLineSize bytes so a child that never writes a
// newline cannot grow the buffer without bound. Pieces end on a UTF-8
// character boundary where one is within reach.
type lineWriter struct {
	mu          sync.Mutex
	pending     []byte
	maxLineSize int
	emit        func(line string)
}

func newLineWriter(maxLineSize int, emit func(line string)) *lineWriter {
	return &lineWriter{maxLineSize: maxLineSize, emit: emit}
}

func (w *lineWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	written := len(data)
	for len(data) > 0 {
		index := bytes.IndexByte(data, '\n')
		if index < 0 {
			w.pending = append(w.pending, data...)
			w.emitOversized()
			break
		}
		w.pending = append(w.pending, data[:index]...)
		data = data[index+1:]
		w.emitOversized()
		w.emitPending()
	}
	return written, nil
}

// Flush emits a trailing line that was never terminated.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.emitPending()
	}
}

func (w *lineWriter) emitOversized() {
	for len(w.pending) > w.maxLineSize {
		cut := w.chunkEnd()
		w.emit(string(w.pending[:cut]))
		w.pending = w.pending[cut:]
	}
}

// chunkEnd returns where to split an oversized pending line: maxLineSize,
// moved back so a multi-byte character is not split across pieces.
func (w *lineWriter) chunkEnd() int {
	cut := w.maxLineSize
	for back := 0; back < utf8.UTFMax-1 && cut > 0 && !utf8.RuneStart(w.pending[cut]); back++ {
		cut--
	}
	if cut == 0 || !utf8.RuneStart(w.pending[cut]) {
		return w.maxLineSize
	}
	return cut
}

func (w *lineWriter) emitPending() {
	line := bytes.TrimSuffix(w.pending, []byte{'\r'})
	w.emit(string(line))
	w.pending = w.pending[:0]
}
