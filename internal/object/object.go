package object

import (
	"sync"

	"github.com/wlmux/wlmux/internal/protoerr"
	"github.com/wlmux/wlmux/internal/wire"
)

// Handler lets an object's protocol behavior be overridden at runtime.
// The default (nil Handler) relay behavior lives in internal/dispatch;
// a non-nil Handler replaces it, but an override for the display
// interface must still call through to the delete_id bookkeeping.
type Handler interface {
	HandleRequest(o *Object, opcode uint16, p *wire.Parser) error
	HandleEvent(o *Object, opcode uint16, p *wire.Parser) error
}

// Object is one live protocol entity: an interface-typed id pair bound
// into (at most) one client table entry and one server table entry.
type Object struct {
	Interface string
	Tag       string // stable discriminator for error messages
	Version   uint32

	mu       sync.Mutex
	clientID *uint32
	serverID *uint32

	clientTable *Table
	serverTable *Table

	ServerDestroyed bool
	ClientDestroyed bool
	Deleted         bool

	ForwardToClient bool
	ForwardToServer bool

	handler  Handler
	borrowed bool
}

// New constructs an object with forwarding enabled by default and no
// ids bound yet.
func New(iface, tag string, version uint32) *Object {
	return &Object{
		Interface:       iface,
		Tag:             tag,
		Version:         version,
		ForwardToClient: true,
		ForwardToServer: true,
	}
}

// ClientID returns the bound client id and whether one is bound.
func (o *Object) ClientID() (uint32, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.clientID == nil {
		return 0, false
	}
	return *o.clientID, true
}

// ServerID returns the bound server id and whether one is bound.
func (o *Object) ServerID() (uint32, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.serverID == nil {
		return 0, false
	}
	return *o.serverID, true
}

// SetClientID binds o into table at id, failing on collision.
func (o *Object) SetClientID(table *Table, id uint32) error {
	if err := table.Insert(id, o); err != nil {
		return protoerr.SetClientId("set_client_id", id)
	}
	o.mu.Lock()
	o.clientID = &id
	o.clientTable = table
	o.mu.Unlock()
	return nil
}

// SetServerID binds o into table at id, failing on collision.
func (o *Object) SetServerID(table *Table, id uint32) error {
	if err := table.Insert(id, o); err != nil {
		return protoerr.SetServerId("set_server_id", id)
	}
	o.mu.Lock()
	o.serverID = &id
	o.serverTable = table
	o.mu.Unlock()
	return nil
}

// GenerateClientID allocates a fresh id from table's partition and binds it.
func (o *Object) GenerateClientID(table *Table) (uint32, error) {
	id := table.Generate()
	if err := o.SetClientID(table, id); err != nil {
		return 0, protoerr.GenerateClientId("generate_client_id", err)
	}
	return id, nil
}

// GenerateServerID allocates a fresh id from table's partition and binds it.
func (o *Object) GenerateServerID(table *Table) (uint32, error) {
	id := table.Generate()
	if err := o.SetServerID(table, id); err != nil {
		return 0, protoerr.GenerateServerId("generate_server_id", err)
	}
	return id, nil
}

// HandleClientDestroy marks the object client_destroyed and removes it
// from the client table immediately, so the client may reuse the id
// as soon as the request is processed.
func (o *Object) HandleClientDestroy() {
	o.mu.Lock()
	o.ClientDestroyed = true
	table, id := o.clientTable, o.clientID
	o.mu.Unlock()
	if table != nil && id != nil {
		table.Remove(*id)
	}
}

// HandleServerDestroy marks the object server_destroyed and removes it
// from the server table immediately.
func (o *Object) HandleServerDestroy() {
	o.mu.Lock()
	o.ServerDestroyed = true
	table, id := o.serverTable, o.serverID
	o.mu.Unlock()
	if table != nil && id != nil {
		table.Remove(*id)
	}
}

// MarkDeleted finalizes the object once both sides have reclaimed the
// id via delete_id; further dispatch to either id is a protocol error.
func (o *Object) MarkDeleted() {
	o.mu.Lock()
	o.Deleted = true
	o.mu.Unlock()
}

// TryBorrow acquires the exclusive handler slot. A reentrant attempt
// while the slot is held fails with HandlerBorrowed.
func (o *Object) TryBorrow() (release func(), err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.borrowed {
		return nil, protoerr.HandlerBorrowed(o.Interface, o.anyID())
	}
	o.borrowed = true
	return func() {
		o.mu.Lock()
		o.borrowed = false
		o.mu.Unlock()
	}, nil
}

func (o *Object) anyID() uint32 {
	if o.clientID != nil {
		return *o.clientID
	}
	if o.serverID != nil {
		return *o.serverID
	}
	return 0
}

// SetHandler installs a handler override unconditionally; it does not
// consult any shutdown flag, so an override is accepted after shutdown
// too (the dispatcher then drops every message before a handler runs).
func (o *Object) SetHandler(h Handler) {
	o.mu.Lock()
	o.handler = h
	o.mu.Unlock()
}

// GetHandler returns the current override, or nil for default relay behavior.
func (o *Object) GetHandler() Handler {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handler
}
