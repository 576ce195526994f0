// +build !windows

package binder

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/wlmux/wlmux/internal/endpoint"
)

// socketpair returns two ends of a real, connected unix socket, useful
// for exercising Endpoint/Binder code that expects a genuine
// *net.UnixConn rather than a mock.
func socketpair(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	dir := t.TempDir()
	addr := filepath.Join(dir, "wlmux-test.sock")

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: addr, Net: "unix"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	acceptedCh := make(chan *net.UnixConn, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := ln.AcceptUnix()
		if err != nil {
			errCh <- err
			return
		}
		acceptedCh <- c
	}()

	client, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: addr, Net: "unix"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case server := <-acceptedCh:
		return client, server
	case err := <-errCh:
		t.Fatalf("accept: %v", err)
	}
	return nil, nil
}

func newTestEndpoint(conn *net.UnixConn, isServer bool) *endpoint.Endpoint {
	return endpoint.New(conn, 1, isServer, nil, nil)
}
