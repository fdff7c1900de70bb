// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer is the child side of the bridge protocol, for children
// written in Go.
//
// A child launched by a bridge receives its port and base64 key as its
// last two arguments. [FromArgs] parses them and connects; [Dial] does
// the same from explicit values. Either way the raw key bytes are the
// first thing written on the socket, and the returned [Conn] then
// exchanges newline-terminated lines.
//
//	conn, err := peer.FromArgs(ctx, os.Args[1:])
//	if err != nil {
//	    process.Fatal(err)
//	}
//	defer conn.Close()
//	for {
//	    line, err := conn.ReadLine()
//	    if err != nil {
//	        return // io.EOF once the bridge closes
//	    }
//	    conn.WriteLine(strings.ToUpper(line))
//	}
package peer
