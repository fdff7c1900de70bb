// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for bridge shutdown and transcript
// timestamps.
//
// Production code uses [Real]. Tests use [Fake], which only moves when
// Advance is called. A goroutine waiting on After registers a pending
// timer; WaitForTimers blocks until the expected number are registered
// so that Advance never races the registration:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go terminate(c)         // calls c.After(grace)
//	c.WaitForTimers(1)
//	c.Advance(grace)
package clock
