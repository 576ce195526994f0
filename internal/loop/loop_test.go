// +build !windows

package loop

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/wlmux/wlmux/internal/metrics"
	"github.com/wlmux/wlmux/internal/proto"
	"github.com/wlmux/wlmux/internal/wire"

	"github.com/prometheus/client_golang/prometheus"
)

func unixSocketPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// TestLoopBindsAndForwards drives a whole C7+C8 cycle over real unix
// sockets: a downstream client connects, the loop dials a stand-in
// compositor, and a wl_display.sync request written on the downstream
// side arrives byte-identical on the compositor side.
func TestLoopBindsAndForwards(t *testing.T) {
	compositorAddr := &net.UnixAddr{Net: "unix", Name: unixSocketPath(t, "compositor.sock")}
	compositorLn, err := net.ListenUnix("unix", compositorAddr)
	if err != nil {
		t.Fatalf("listen compositor: %v", err)
	}
	defer compositorLn.Close()

	compositorConnCh := make(chan *net.UnixConn, 1)
	go func() {
		c, err := compositorLn.AcceptUnix()
		if err == nil {
			compositorConnCh <- c
		}
	}()

	dial := func() (*net.UnixConn, error) {
		return net.DialUnix("unix", nil, compositorAddr)
	}

	coll := metrics.NewCollector(prometheus.NewRegistry())
	l := New(dial, proto.NewRegistry(), coll, nil, nil)

	downstreamAddr := &net.UnixAddr{Net: "unix", Name: unixSocketPath(t, "downstream.sock")}
	downstreamLn, err := net.ListenUnix("unix", downstreamAddr)
	if err != nil {
		t.Fatalf("listen downstream: %v", err)
	}
	defer downstreamLn.Close()
	go l.Serve(downstreamLn)

	client, err := net.DialUnix("unix", nil, downstreamAddr)
	if err != nil {
		t.Fatalf("dial downstream: %v", err)
	}
	defer client.Close()

	var compositorConn *net.UnixConn
	select {
	case compositorConn = <-compositorConnCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the loop to bind a compositor connection")
	}
	defer compositorConn.Close()

	f := wire.NewFormatter()
	f.U32(10) // new_id for the sync callback
	words, _ := f.Finish(1, 0)
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	if _, err := client.Write(buf); err != nil {
		t.Fatalf("write request: %v", err)
	}

	compositorConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, len(buf))
	if _, err := io.ReadFull(compositorConn, got); err != nil {
		t.Fatalf("read forwarded request: %v", err)
	}
	for i := range buf {
		if got[i] != buf[i] {
			t.Fatalf("forwarded bytes differ at %d: got %d want %d", i, got[i], buf[i])
		}
	}

	if l.Active() != 1 {
		t.Fatalf("expected 1 active pair, got %d", l.Active())
	}
}

// TestLoopTearsDownOnDisconnect verifies that closing the downstream
// side unbinds the pair on drain failure.
func TestLoopTearsDownOnDisconnect(t *testing.T) {
	compositorAddr := &net.UnixAddr{Net: "unix", Name: unixSocketPath(t, "compositor2.sock")}
	compositorLn, err := net.ListenUnix("unix", compositorAddr)
	if err != nil {
		t.Fatalf("listen compositor: %v", err)
	}
	defer compositorLn.Close()
	go func() {
		c, err := compositorLn.AcceptUnix()
		if err == nil {
			defer c.Close()
			buf := make([]byte, 4096)
			for {
				if _, err := c.Read(buf); err != nil {
					return
				}
			}
		}
	}()

	dial := func() (*net.UnixConn, error) {
		return net.DialUnix("unix", nil, compositorAddr)
	}

	coll := metrics.NewCollector(prometheus.NewRegistry())
	l := New(dial, proto.NewRegistry(), coll, nil, nil)

	downstreamAddr := &net.UnixAddr{Net: "unix", Name: unixSocketPath(t, "downstream2.sock")}
	downstreamLn, err := net.ListenUnix("unix", downstreamAddr)
	if err != nil {
		t.Fatalf("listen downstream: %v", err)
	}
	defer downstreamLn.Close()
	go l.Serve(downstreamLn)

	client, err := net.DialUnix("unix", nil, downstreamAddr)
	if err != nil {
		t.Fatalf("dial downstream: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && l.Active() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if l.Active() != 1 {
		t.Fatalf("expected 1 active pair before disconnect, got %d", l.Active())
	}

	client.Close()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && l.Active() != 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if l.Active() != 0 {
		t.Fatalf("expected the pair to be unbound after disconnect, got %d active", l.Active())
	}
}
