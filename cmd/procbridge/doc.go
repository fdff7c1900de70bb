// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Procbridge runs a script under a process bridge. Each line read from
// stdin is sent to the script over the authenticated loopback channel;
// each line the script sends back is printed to stdout. The script's own
// stdout and stderr are logged. The session can be recorded to a
// transcript for later inspection with procbridge-transcript.
package main
