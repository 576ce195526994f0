// Package dispatch implements C5 (the dispatcher) and its delete_id
// handshake: decoding one message against the registry, rewriting
// object ids across the client/server id spaces, invoking handlers, and
// running destroy bookkeeping after the relay is enqueued.
package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"

	golog "github.com/op/go-logging"

	"github.com/wlmux/wlmux/internal/endpoint"
	"github.com/wlmux/wlmux/internal/fdref"
	wlog "github.com/wlmux/wlmux/internal/logging"
	"github.com/wlmux/wlmux/internal/metrics"
	"github.com/wlmux/wlmux/internal/object"
	"github.com/wlmux/wlmux/internal/proto"
	"github.com/wlmux/wlmux/internal/protoerr"
	"github.com/wlmux/wlmux/internal/wire"
)

// Connection is one bound (downstream client, upstream server) pair:
// the two endpoints, their two object tables, and the shared registry.
type Connection struct {
	ID         int
	LogPrefix  string
	ClientConn *endpoint.Endpoint
	ServerConn *endpoint.Endpoint

	ClientTable *object.Table
	ServerTable *object.Table
	Registry    *proto.Registry

	Log     *golog.Logger
	Audit   *object.Audit
	Metrics *metrics.Collector

	// SameClient resolves the per-event "different client" forwarding
	// filter: given the object an event references, report whether it
	// belongs to this same connection's client. The zero value (nil)
	// never filters, matching a single-pair Connection's default. Nothing
	// in this module, internal/binder included, assigns it.
	SameClient func(ref *object.Object) bool

	// Shutdown, when non-nil, is a flag shared across every connection
	// a single internal/loop.Loop owns. Once it is set non-zero (the
	// global shutdown), further messages are silently dropped rather
	// than processed, without tearing down connections mid-drain. It is
	// not consulted by object.SetHandler: handler installation is not
	// refused after shutdown.
	Shutdown *int32

	// mu serializes dispatch across the pair's two drain goroutines, so
	// one message is processed at a time per Connection.
	mu sync.Mutex

	errSeq uint64
}

// New constructs a Connection with both tables seeded with the display
// singleton at id 1.
func New(id int, clientConn, serverConn *endpoint.Endpoint, registry *proto.Registry, log *golog.Logger, prefix string, audit *object.Audit, coll *metrics.Collector) *Connection {
	c := &Connection{
		ID:          id,
		LogPrefix:   prefix,
		ClientConn:  clientConn,
		ServerConn:  serverConn,
		ClientTable: object.NewTable(false),
		ServerTable: object.NewTable(true),
		Registry:    registry,
		Log:         log,
		Audit:       audit,
		Metrics:     coll,
	}
	display := object.New("wl_display", "WlDisplay", 1)
	_ = display.SetClientID(c.ClientTable, 1)
	_ = display.SetServerID(c.ServerTable, 1)
	c.updateObjectsLive()
	return c
}

// FromClient is wired as the client endpoint's Dispatcher callback.
func (c *Connection) FromClient(receiver uint32, opcode uint16, payload []uint32, fds []*fdref.Ref) error {
	return c.dispatch(true, receiver, opcode, payload, fds)
}

// FromServer is wired as the server endpoint's Dispatcher callback.
func (c *Connection) FromServer(receiver uint32, opcode uint16, payload []uint32, fds []*fdref.Ref) error {
	return c.dispatch(false, receiver, opcode, payload, fds)
}

// releaseFds closes out every ref that never made it into an outgoing
// queue: the catch-all for receiver/registry/message lookups that fail
// before a Parser ever takes ownership of the fds handed to this call.
func releaseFds(fds []*fdref.Ref) {
	for _, f := range fds {
		f.Release()
	}
}

func (c *Connection) dispatch(fromClient bool, receiver uint32, opcode uint16, payload []uint32, fds []*fdref.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Shutdown != nil && atomic.LoadInt32(c.Shutdown) != 0 {
		releaseFds(fds)
		return nil
	}

	table := c.sideTable(fromClient)

	obj, ok := table.Lookup(receiver)
	if !ok {
		releaseFds(fds)
		err := c.noObjectErr(fromClient, receiver)
		c.recordTearDown(err)
		return err
	}

	release, err := obj.TryBorrow()
	if err != nil {
		releaseFds(fds)
		c.recordTearDown(err)
		return err
	}
	defer release()

	iface, ok := c.Registry.Lookup(obj.Interface)
	if !ok {
		releaseFds(fds)
		err := protoerr.UnknownMessageId(obj.Interface, opcode)
		c.recordTearDown(err)
		return err
	}

	var msg proto.Message
	if fromClient {
		msg, ok = iface.Request(opcode)
	} else {
		msg, ok = iface.Event(opcode)
	}
	if !ok || (msg.Since > 0 && obj.Version < msg.Since && obj.Version != 0) {
		releaseFds(fds)
		err := protoerr.UnknownMessageId(obj.Interface, opcode)
		c.recordTearDown(err)
		return err
	}

	if h := obj.GetHandler(); h != nil {
		p := wire.NewParser(payload, fds)
		defer func() { releaseFds(p.RemainingFds()) }()
		var herr error
		if fromClient {
			herr = h.HandleRequest(obj, opcode, p)
		} else {
			herr = h.HandleEvent(obj, opcode, p)
		}
		if herr != nil {
			c.recordTearDown(herr)
		}
		return herr
	}

	return c.defaultForward(fromClient, obj, iface, msg, table, payload, fds)
}

func (c *Connection) sideTable(fromClient bool) *object.Table {
	if fromClient {
		return c.ClientTable
	}
	return c.ServerTable
}

func (c *Connection) noObjectErr(fromClient bool, id uint32) *protoerr.Error {
	if fromClient {
		return protoerr.NoClientObject(id)
	}
	return protoerr.NoServerObject(id)
}

// defaultForward decodes the message, rewrites object ids across the
// client/server id spaces, forwards the relay, then runs destroy
// bookkeeping after the relay is enqueued.
func (c *Connection) defaultForward(fromClient bool, obj *object.Object, iface *proto.Interface, msg proto.Message, senderTable *object.Table, payload []uint32, fds []*fdref.Ref) error {
	p := wire.NewParser(payload, fds)
	rewritten := append([]uint32(nil), payload...)
	var rendered []wlog.RenderedArg
	var usedFds []*fdref.Ref
	var deleteIDValue *uint32
	dropped := ""
	var droppedErr *protoerr.Error

	// Whatever the message signature never claims (extra fds that
	// arrived batched with a later message, or fds left over once
	// decoding stops at an error or a drop) is released here; nothing
	// else in this call will ever see them again.
	defer func() { releaseFds(p.RemainingFds()) }()

	// usedFds are the fds this message's own Fd-kind args dequeued.
	// They are released here unless the message is actually forwarded,
	// at which point ownership passes to the outgoing endpoint.
	transferred := false
	defer func() {
		if !transferred {
			releaseFds(usedFds)
		}
	}()

	for _, arg := range msg.Args {
		if dropped != "" {
			break
		}
		offset := p.Offset()
		switch arg.Kind {
		case proto.KindU32, proto.KindEnum, proto.KindBitfield:
			v, err := p.U32(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			rendered = append(rendered, wlog.RenderU32(arg.Name, v))
			if iface.Name == "wl_display" && msg.Name == "delete_id" && arg.Name == "id" {
				deleteIDValue = &v
			}
		case proto.KindI32:
			v, err := p.I32(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			rendered = append(rendered, wlog.RenderI32(arg.Name, v))
		case proto.KindFixed:
			v, err := p.FixedArg(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			rendered = append(rendered, wlog.RenderI32(arg.Name, int32(v)))
		case proto.KindString:
			s, err := p.StringAt(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			rendered = append(rendered, wlog.RenderString(arg.Name, s))
		case proto.KindArray:
			b, err := p.ArrayAt(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			rendered = append(rendered, wlog.RenderArray(arg.Name, b))
		case proto.KindFd:
			f, err := p.FdDequeue(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			usedFds = append(usedFds, f)
			rendered = append(rendered, wlog.RenderFd(arg.Name, f))
		case proto.KindObject:
			v, err := p.U32(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			if v == 0 {
				if !arg.Nullable {
					err := protoerr.MissingArgument(msg.Name, arg.Name)
					c.recordTearDown(err)
					return err
				}
				rendered = append(rendered, wlog.RenderObject(arg.Name, arg.Interface, 0, false))
				continue
			}
			refObj, ok := senderTable.Lookup(v)
			if !ok {
				err := c.noObjectErr(fromClient, v)
				c.recordTearDown(err)
				return err
			}
			if arg.Interface != "" && refObj.Interface != arg.Interface {
				err := protoerr.WrongObjectType(arg.Name, refObj.Interface, arg.Interface)
				c.recordTearDown(err)
				return err
			}
			if msg.SameClientOnly && c.SameClient != nil && !c.SameClient(refObj) {
				dropped = "same_client_only"
				break
			}
			var crossID uint32
			var crossOK bool
			if fromClient {
				crossID, crossOK = refObj.ServerID()
			} else {
				crossID, crossOK = refObj.ClientID()
			}
			if !crossOK {
				if fromClient {
					droppedErr = protoerr.ArgNoServerId(msg.Name, arg.Name, v)
				} else {
					droppedErr = protoerr.ArgNoClientId(msg.Name, arg.Name, v)
				}
				dropped = droppedErr.Kind.String()
				break
			}
			rewritten[offset] = crossID
			rendered = append(rendered, wlog.RenderObject(arg.Name, refObj.Interface, crossID, true))
		case proto.KindNewID:
			id, err := p.U32(arg.Name)
			if err != nil {
				c.recordTearDown(err)
				return err
			}
			childIface := arg.Interface
			child := object.New(childIface, childIface, 0)
			if err := child.SetClientID(c.ClientTable, id); err != nil {
				c.recordTearDown(err)
				return err
			}
			if err := child.SetServerID(c.ServerTable, id); err != nil {
				c.recordTearDown(err)
				return err
			}
			c.updateObjectsLive()
			rendered = append(rendered, wlog.RenderObject(arg.Name, childIface, id, true))
		}
	}

	if dropped == "" && p.Remaining() != 0 {
		err := protoerr.TrailingBytes(msg.Name, p.Remaining()*4)
		c.recordTearDown(err)
		return err
	}

	c.logMessage(fromClient, obj.Interface, receiverIDFor(obj, fromClient), msg.Name, rendered, dropped != "")

	if dropped != "" {
		if droppedErr != nil {
			c.recordDropped(droppedErr)
		} else if c.Metrics != nil {
			c.Metrics.MessagesDropped.WithLabelValues(dropped).Inc()
		}
		return nil
	}

	if !c.forwardAllowed(fromClient, obj) {
		if c.Metrics != nil {
			c.Metrics.MessagesDropped.WithLabelValues("forwarding_disabled").Inc()
		}
		return nil
	}

	targetID, ok := c.crossReceiverID(fromClient, obj)
	if !ok {
		// try_send_* surface: the receiver isn't bound on the target
		// side yet. Logged and swallowed, never tears down.
		var unboundErr *protoerr.Error
		if fromClient {
			unboundErr = protoerr.ReceiverNoServerId(msg.Name, receiverIDFor(obj, fromClient))
		} else {
			unboundErr = protoerr.ReceiverNoClient(msg.Name, receiverIDFor(obj, fromClient))
		}
		c.recordDropped(unboundErr)
		return nil
	}

	totalBytes := uint32((len(rewritten) + wire.HeaderWords) * 4)
	full := make([]uint32, 0, len(rewritten)+wire.HeaderWords)
	full = append(full, targetID, (totalBytes<<16)|uint32(msg.Opcode))
	full = append(full, rewritten...)

	target := c.ServerConn
	if !fromClient {
		target = c.ClientConn
	}
	transferred = true
	target.Enqueue(full, usedFds)
	if c.Metrics != nil {
		c.Metrics.MessagesForwarded.WithLabelValues(direction(fromClient), obj.Interface).Inc()
	}

	if msg.Destructor {
		if fromClient {
			obj.HandleClientDestroy()
		} else {
			obj.HandleServerDestroy()
		}
		c.updateObjectsLive()
	}

	if deleteIDValue != nil {
		c.reclaimDeletedID(*deleteIDValue)
	}

	return nil
}

// reclaimDeletedID runs once delete_id(N) has been forwarded to the
// client: N's remaining bookkeeping drops (the server-side binding of a
// client-destroyed object, or the client-side binding of a
// server-destroyed one) and the id becomes available for reuse in that
// id space.
func (c *Connection) reclaimDeletedID(id uint32) {
	table := c.ServerTable
	refObj, ok := table.Lookup(id)
	if !ok {
		table = c.ClientTable
		refObj, ok = table.Lookup(id)
		if !ok || !refObj.ServerDestroyed {
			return
		}
	}
	table.Remove(id)
	refObj.MarkDeleted()
	if c.Audit != nil {
		c.Audit.RecordDelete(id, refObj.Interface)
	}
	c.updateObjectsLive()
}

// updateObjectsLive refreshes the live-object gauge from both tables'
// current size. Called at every point table membership changes: bind,
// new_id, and the delete_id/destructor teardown paths.
func (c *Connection) updateObjectsLive() {
	if c.Metrics == nil {
		return
	}
	c.Metrics.ObjectsLive.WithLabelValues("client").Set(float64(c.ClientTable.Len()))
	c.Metrics.ObjectsLive.WithLabelValues("server").Set(float64(c.ServerTable.Len()))
}

func (c *Connection) forwardAllowed(fromClient bool, obj *object.Object) bool {
	if fromClient {
		return obj.ForwardToServer
	}
	return obj.ForwardToClient
}

func (c *Connection) crossReceiverID(fromClient bool, obj *object.Object) (uint32, bool) {
	if fromClient {
		return obj.ServerID()
	}
	return obj.ClientID()
}

func receiverIDFor(obj *object.Object, fromClient bool) uint32 {
	var id uint32
	var ok bool
	if fromClient {
		id, ok = obj.ClientID()
	} else {
		id, ok = obj.ServerID()
	}
	if !ok {
		return 0
	}
	return id
}

func direction(fromClient bool) string {
	if fromClient {
		return "client_to_server"
	}
	return "server_to_client"
}

func (c *Connection) logMessage(fromClient bool, iface string, id uint32, opname string, args []wlog.RenderedArg, dropped bool) {
	if c.Log == nil {
		return
	}
	origin := wlog.Origin(c.ID, !fromClient)
	dir := wlog.DirIncoming
	line := wlog.Line(c.LogPrefix, origin, dir, iface, id, opname, args)
	if dropped {
		line += " [dropped]"
	}
	c.Log.Info(line)
}

func (c *Connection) recordTearDown(err error) {
	c.errSeq++
	if c.Audit != nil {
		c.Audit.RecordError(c.errSeq, err)
	}
	if c.Metrics != nil {
		kind := "unknown"
		if pe, ok := err.(*protoerr.Error); ok {
			kind = pe.Kind.String()
		}
		c.Metrics.Errors.WithLabelValues(kind).Inc()
	}
	if c.Log != nil {
		c.Log.Error(fmt.Sprintf("connection %d: %v", c.ID, err))
	}
}

// recordDropped records a protocol error whose kind never tears down
// the connection: the try_send_* surface, where the receiver or a
// referenced object isn't bound on the target side yet. The message
// that triggered it was already logged with "[dropped]" by logMessage;
// this only updates audit and metrics. A kind that does tear down is
// a caller mistake, so it falls back to the teardown path instead of
// silently dropping a message that should abort the connection.
func (c *Connection) recordDropped(err *protoerr.Error) {
	if err == nil {
		return
	}
	if err.Kind.TearsDown() {
		c.recordTearDown(err)
		return
	}
	c.errSeq++
	if c.Audit != nil {
		c.Audit.RecordError(c.errSeq, err)
	}
	if c.Metrics != nil {
		c.Metrics.MessagesDropped.WithLabelValues(err.Kind.String()).Inc()
	}
}
