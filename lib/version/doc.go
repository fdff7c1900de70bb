// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the procbridge
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/procbridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Values left at their defaults ("unknown", "0.1.0-dev") are filled from
// the module version and VCS stamps recorded by the Go toolchain, so a
// plain go install still reports its commit. [Info] formats the result;
// [Print] writes it with the Go version and platform for --version.
package version
