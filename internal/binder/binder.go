// +build !windows

// Package binder implements C7: accepting downstream client connections,
// dialing the single upstream compositor for each one, and handing the
// bound pair off to the event loop. A Windows binder would need its own
// variant built on the named-pipe endpoint in endpoint_windows.go; not
// provided here. Windows support in this module is scoped to the wire
// codec and logging layers only.
package binder

import (
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/op/go-logging"
	uuid "github.com/satori/go.uuid"

	"github.com/wlmux/wlmux/internal/dispatch"
	"github.com/wlmux/wlmux/internal/endpoint"
	wlog "github.com/wlmux/wlmux/internal/logging"
	"github.com/wlmux/wlmux/internal/metrics"
	"github.com/wlmux/wlmux/internal/object"
	"github.com/wlmux/wlmux/internal/proto"
)

// UpstreamDialer opens a fresh connection to the compositor for one
// accepted downstream client. Implemented as a func so tests can stub
// it without a real Wayland compositor listening.
type UpstreamDialer func() (*net.UnixConn, error)

// Scheduler hands a fully-bound Connection to the event loop (C8) for
// its poll/drain/flush lifecycle. internal/loop supplies the real
// implementation; it is injected here so this package stays independent
// of the loop's platform-specific poll primitives.
type Scheduler func(pair *Pair)

// Pair is one bound downstream/upstream connection together with its
// dispatcher, handed to the event loop.
type Pair struct {
	ID         string
	ClientConn *endpoint.Endpoint
	ServerConn *endpoint.Endpoint
	Dispatch   *dispatch.Connection
}

// Binder owns the shared, immutable-after-construction state every
// bound pair needs: the interface registry, the metrics collector, and
// the logger. One Binder serves every accepted connection.
type Binder struct {
	Registry *proto.Registry
	Metrics  *metrics.Collector
	Log      *logging.Logger
	LogToken bool

	Dial    UpstreamDialer
	OnBound Scheduler

	// FlushScheduler is wired into every endpoint this Binder constructs.
	// internal/loop overrides it with real writability registration;
	// the default no-op keeps Binder usable standalone in tests.
	FlushScheduler endpoint.Scheduler

	// Audit, when non-nil, is the single trail every bound connection
	// records into, so an outside reader (internal/control) sees
	// deletes and errors across every pair. A nil Audit falls back to
	// a fresh per-connection trail, which is fine standalone but means
	// nothing outside the pair can ever read it.
	Audit *object.Audit

	shutdown int32

	mu       sync.Mutex
	active   map[string]*Pair
	nextConn int
}

// New constructs a Binder ready to accept connections once Serve runs.
// audit may be nil, in which case every bound connection gets its own
// private trail instead of sharing one.
func New(registry *proto.Registry, coll *metrics.Collector, log *logging.Logger, dial UpstreamDialer, onBound Scheduler, audit *object.Audit) *Binder {
	return &Binder{
		Registry:       registry,
		Metrics:        coll,
		Log:            log,
		Dial:           dial,
		OnBound:        onBound,
		FlushScheduler: func(*endpoint.Endpoint) {},
		Audit:          audit,
		active:         make(map[string]*Pair),
	}
}

// TriggerShutdown sets the shared shutdown flag every bound Connection
// observes: already-dispatched messages finish, but no further message
// is processed.
func (b *Binder) TriggerShutdown() {
	atomic.StoreInt32(&b.shutdown, 1)
}

// Serve runs the accept loop for downstream clients: for each
// connection it dials the upstream compositor, binds both endpoints and
// object tables, seeds the display singleton, and schedules the pair
// onto the event loop. An accept error ends the loop and is returned;
// an accepted connection that is not a unix socket is closed, logged,
// and skipped.
func (b *Binder) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			conn.Close()
			if b.Log != nil {
				b.Log.Error("binder: downstream connection is not a unix socket")
			}
			continue
		}
		go b.bind(unixConn)
	}
}

func (b *Binder) bind(client *net.UnixConn) {
	defer recoverToLog(b.Log)

	upstream, err := b.Dial()
	if err != nil {
		client.Close()
		if b.Log != nil {
			b.Log.Error(fmt.Sprintf("binder: upstream dial failed: %v", err))
		}
		return
	}

	id := b.connID()
	connUUID, err := uuid.NewV4()
	if err != nil {
		client.Close()
		upstream.Close()
		if b.Log != nil {
			b.Log.Error(fmt.Sprintf("binder: uuid generation failed: %v", err))
		}
		return
	}
	token := wlog.Token(connUUID.Bytes())
	prefix := "[" + token + "] "

	audit := b.Audit
	if audit == nil {
		audit = object.NewAudit()
	}
	conn := dispatch.New(id, nil, nil, b.Registry, b.Log, prefix, audit, b.Metrics)
	conn.Shutdown = &b.shutdown

	clientEp := endpoint.New(client, id, false, conn.FromClient, b.FlushScheduler)
	serverEp := endpoint.New(upstream, id, true, conn.FromServer, b.FlushScheduler)
	conn.ClientConn = clientEp
	conn.ServerConn = serverEp

	pair := &Pair{ID: token, ClientConn: clientEp, ServerConn: serverEp, Dispatch: conn}

	b.mu.Lock()
	b.active[token] = pair
	b.mu.Unlock()

	if b.Metrics != nil {
		b.Metrics.ConnectionsActive.Inc()
	}
	if b.Log != nil {
		b.Log.Info(fmt.Sprintf("%sbound connection %d", prefix, id))
	}

	b.OnBound(pair)
}

// Unbind removes a pair from the active set once the event loop has
// torn it down, releasing both sockets. Safe to call more than once.
func (b *Binder) Unbind(pair *Pair) {
	b.mu.Lock()
	_, existed := b.active[pair.ID]
	delete(b.active, pair.ID)
	b.mu.Unlock()
	if !existed {
		return
	}
	pair.ClientConn.Close()
	pair.ServerConn.Close()
	if b.Metrics != nil {
		b.Metrics.ConnectionsActive.Dec()
	}
	if b.Log != nil {
		b.Log.Info(fmt.Sprintf("[%s] connection torn down", pair.ID))
	}
}

// Active reports the number of currently bound pairs.
func (b *Binder) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.active)
}

func (b *Binder) connID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextConn++
	return b.nextConn
}

func recoverToLog(log *logging.Logger) {
	if r := recover(); r != nil {
		if log != nil {
			log.Error(fmt.Sprintf("binder: run time panic: %v", r))
			log.Error(string(debug.Stack()))
		}
	}
}
