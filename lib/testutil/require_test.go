// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// fatalRecorder captures Fatalf instead of stopping the test. Fatalf
// panics so the helper under test stops the way t.Fatalf would.
type fatalRecorder struct {
	message string
}

type fatalCalled struct{}

func (r *fatalRecorder) Helper() {}

func (r *fatalRecorder) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
	panic(fatalCalled{})
}

func capture(run func(*fatalRecorder)) (recorder *fatalRecorder) {
	recorder = &fatalRecorder{}
	defer func() {
		if recovered := recover(); recovered != nil {
			if _, ok := recovered.(fatalCalled); !ok {
				panic(recovered)
			}
		}
	}()
	run(recorder)
	return recorder
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "value"
	if got := RequireReceive(t, ch, time.Second, "buffered"); got != "value" {
		t.Fatalf("RequireReceive = %q, want %q", got, "value")
	}

	recorder := capture(func(r *fatalRecorder) {
		RequireReceive(r, make(chan string), 10*time.Millisecond, "waiting for %s", "nothing")
	})
	if !strings.Contains(recorder.message, "waiting for nothing") {
		t.Fatalf("timeout message = %q", recorder.message)
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second, "already closed")

	recorder := capture(func(r *fatalRecorder) {
		RequireClosed(r, make(chan struct{}), 10*time.Millisecond, "never closed")
	})
	if !strings.Contains(recorder.message, "never closed") {
		t.Fatalf("timeout message = %q", recorder.message)
	}
}

func TestRequireNoReceive(t *testing.T) {
	RequireNoReceive(t, make(chan int), 10*time.Millisecond, "idle")

	ch := make(chan int, 1)
	ch <- 7
	recorder := capture(func(r *fatalRecorder) {
		RequireNoReceive(r, ch, time.Second, "late delivery")
	})
	if !strings.Contains(recorder.message, "unexpected value 7") {
		t.Fatalf("message = %q", recorder.message)
	}
}
