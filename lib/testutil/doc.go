// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] wrap the
// select-with-timeout pattern so that individual tests never call
// time.After directly. They are the only place tests use real wall-clock
// timeouts. Code under test takes a clock.Clock instead.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
