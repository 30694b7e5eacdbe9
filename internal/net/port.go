package net

import (
	"fmt"
	"net"
	"strconv"
	"testing"
)

// FreeTCPPort asks the kernel for an unused loopback port.
// The port is released before returning, so callers race other processes for it.
func FreeTCPPort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listening to acquire port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// MustFreeLoopbackAddr returns a "127.0.0.1:port" address with a currently unused port.
func MustFreeLoopbackAddr(t testing.TB) (string, int) {
	t.Helper()
	port, err := FreeTCPPort()
	if err != nil {
		t.Fatalf("acquiring free port: %s", err)
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), port
}
