// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"fmt"
	"net"
	"net/netip"
)

// DefaultLoopbackAddress binds an ephemeral IPv4 loopback port.
const DefaultLoopbackAddress = "127.0.0.1:0"

// LoopbackHost is the only host a bridge listens on. The child learns
// just the port from its arguments and always dials this host.
var LoopbackHost = netip.MustParseAddr("127.0.0.1")

// CheckListenAddress reports whether address can be bound by
// [ListenLoopback]: a "host:port" pair whose host is [LoopbackHost]. An
// empty address is accepted and means [DefaultLoopbackAddress].
func CheckListenAddress(address string) error {
	if address == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("netutil: invalid listen address %q: %w", address, err)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("netutil: listen host %q must be an IP literal: %w", host, err)
	}
	if !ip.IsLoopback() {
		return fmt.Errorf("netutil: listen address %s is not loopback", address)
	}
	if ip != LoopbackHost {
		return fmt.Errorf("netutil: listen address %s: children connect to %s, so the host must be %s",
			address, LoopbackHost, LoopbackHost)
	}
	return nil
}

// ListenLoopback binds a TCP listener on address, which must pass
// [CheckListenAddress]. An empty address means [DefaultLoopbackAddress].
// Returns the listener and the port it is bound to.
func ListenLoopback(address string) (*net.TCPListener, int, error) {
	if err := CheckListenAddress(address); err != nil {
		return nil, 0, err
	}
	if address == "" {
		address = DefaultLoopbackAddress
	}

	listener, err := net.Listen("tcp4", address)
	if err != nil {
		return nil, 0, fmt.Errorf("netutil: listen on %s: %w", address, err)
	}
	tcpListener := listener.(*net.TCPListener)
	return tcpListener, tcpListener.Addr().(*net.TCPAddr).Port, nil
}
