// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import "sync"

// sendQueue holds lines sent before a channel exists. It is drained
// exactly once, at promotion; after that Enqueue refuses new lines and
// the bridge routes them to the channel instead.
type sendQueue struct {
	mu      sync.Mutex
	lines   []string
	drained bool
}

// Enqueue appends line. Returns false if the queue has already been
// drained.
func (q *sendQueue) Enqueue(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.drained {
		return false
	}
	q.lines = append(q.lines, line)
	return true
}

// Drain returns the queued lines in enqueue order and closes the queue.
// Later calls return nil.
func (q *sendQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	lines := q.lines
	q.lines = nil
	q.drained = true
	return lines
}

// Len returns the number of queued lines.
func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}
