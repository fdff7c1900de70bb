// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Procbridge-echo is a minimal bridge child. Started by a bridge as
// "procbridge-echo <script> <port> <key>", it connects back to the
// bridge, presents the key, and echoes every line it receives,
// optionally with a prefix. The script argument is ignored, so it can
// stand in for an interpreter:
//
//	procbridge --interpreter procbridge-echo -
//
// It also serves as a reference for writing children in other
// languages.
package main
