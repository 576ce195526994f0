// +build !windows

// Package loop implements C8: the cooperative poll/drain/flush cycle
// that drives every bound connection pair. Rather than hand-rolling a
// poller, it spawns one goroutine per connection direction and lets
// each block in a read: Go's runtime netpoller already multiplexes
// however many such goroutines a proxy needs onto a handful of OS
// threads, so a second, hand-rolled epoll layer on top would only
// duplicate what net.UnixConn already does.
package loop

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/op/go-logging"

	"github.com/wlmux/wlmux/internal/binder"
	"github.com/wlmux/wlmux/internal/endpoint"
	"github.com/wlmux/wlmux/internal/metrics"
	"github.com/wlmux/wlmux/internal/object"
	"github.com/wlmux/wlmux/internal/proto"
)

// Loop owns one Binder and the drain goroutines for every pair it
// binds. Flush scheduling and drain dispatch both run through it.
type Loop struct {
	b   *binder.Binder
	log *logging.Logger

	mu    sync.Mutex
	owner map[*endpoint.Endpoint]*binder.Pair
}

// New builds a Loop and the Binder it drives; dial supplies a fresh
// upstream compositor connection per accepted client. audit, when
// non-nil, is shared across every bound connection so a caller (the
// control server) can read one trail for the whole daemon rather than
// one that dies with its connection.
func New(dial binder.UpstreamDialer, registry *proto.Registry, coll *metrics.Collector, log *logging.Logger, audit *object.Audit) *Loop {
	l := &Loop{
		log:   log,
		owner: make(map[*endpoint.Endpoint]*binder.Pair),
	}
	l.b = binder.New(registry, coll, log, dial, l.onBound, audit)
	l.b.FlushScheduler = l.scheduleFlush
	return l
}

// Serve runs the accept loop; it blocks until listener.Accept() fails,
// e.g. when the listener is closed during shutdown.
func (l *Loop) Serve(listener net.Listener) error {
	return l.b.Serve(listener)
}

// Shutdown sets the global shutdown flag every bound Connection
// observes, so in-flight drains finish but no new message is
// dispatched.
func (l *Loop) Shutdown() {
	l.b.TriggerShutdown()
}

// Active reports the number of currently bound connection pairs.
func (l *Loop) Active() int { return l.b.Active() }

// onBound is the Binder's Scheduler callback: it starts one drain
// goroutine per direction, and registers both endpoints so a later
// flush failure can find the owning pair.
func (l *Loop) onBound(pair *binder.Pair) {
	l.mu.Lock()
	l.owner[pair.ClientConn] = pair
	l.owner[pair.ServerConn] = pair
	l.mu.Unlock()

	go l.drainLoop(pair, pair.ClientConn)
	go l.drainLoop(pair, pair.ServerConn)
}

// drainLoop blocks in Drain until the peer disconnects or a protocol
// error tears the connection down. Drain itself calls back into the
// dispatcher synchronously for every complete message it extracts.
func (l *Loop) drainLoop(pair *binder.Pair, ep *endpoint.Endpoint) {
	defer l.teardown(pair)
	for {
		if err := ep.Drain(); err != nil {
			if err != io.EOF && l.log != nil {
				l.log.Warning(fmt.Sprintf("[%s] drain: %v", pair.ID, err))
			}
			return
		}
	}
}

// scheduleFlush runs the write side: once an endpoint
// has queued outgoing data, flush it. A flush failure (a closed peer,
// typically) tears down the whole pair the same way a drain failure
// does.
func (l *Loop) scheduleFlush(ep *endpoint.Endpoint) {
	go func() {
		if err := ep.Flush(); err != nil {
			l.mu.Lock()
			pair := l.owner[ep]
			l.mu.Unlock()
			if pair != nil {
				if l.log != nil {
					l.log.Warning(fmt.Sprintf("[%s] flush: %v", pair.ID, err))
				}
				l.teardown(pair)
			}
		}
	}()
}

// teardown unregisters both endpoints and unbinds the pair. Safe to
// call from either direction's drain goroutine and from a flush
// failure; Binder.Unbind is idempotent.
func (l *Loop) teardown(pair *binder.Pair) {
	l.mu.Lock()
	delete(l.owner, pair.ClientConn)
	delete(l.owner, pair.ServerConn)
	l.mu.Unlock()
	l.b.Unbind(pair)
}
