// Package object implements the per-endpoint object table (C2) and the
// per-object lifecycle core (C3): id bindings, destroy flags, forwarding
// policy, and the single-slot exclusive handler borrow.
package object

import (
	"sync"

	"github.com/wlmux/wlmux/internal/protoerr"
)

// ServerIdBase is the boundary the protocol partitions the 32-bit id
// space on: ids below it are client-allocated, ids at or above it are
// server-allocated.
const ServerIdBase uint32 = 0xFF000000

// Table is a per-endpoint id→Object mapping. Its own mutex guards the
// map; internal/dispatch additionally serializes a connection's
// messages, so one connection's tables see one message at a time.
type Table struct {
	mu      sync.Mutex
	objects map[uint32]*Object
	next    uint32 // monotonic counter for this table's partition
	server  bool   // true for a server-side table (allocates >= ServerIdBase)
}

// NewTable constructs an empty table for one side of one endpoint.
// server selects which id partition Generate draws fresh ids from.
func NewTable(server bool) *Table {
	t := &Table{objects: make(map[uint32]*Object), server: server}
	if server {
		t.next = ServerIdBase
	} else {
		t.next = 1
	}
	return t
}

// Insert binds o at id, failing if the id is already live in this table.
func (t *Table) Insert(id uint32, o *Object) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.objects[id]; exists {
		return protoerr.New(protoerr.KindSetClientId, "insert", errCollision(id))
	}
	t.objects[id] = o
	return nil
}

// Lookup returns the live object at id, reporting false when absent;
// callers map that to NoClientObject / NoServerObject.
func (t *Table) Lookup(id uint32) (*Object, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.objects[id]
	return o, ok
}

// Remove deletes the binding for id, per invariant 2: the handle may
// remain reachable through other references, but further dispatch to
// this id must fail.
func (t *Table) Remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.objects, id)
}

// Generate allocates the next unused id in this table's partition. Ids
// never recycle within an endpoint's lifetime except via an explicit
// delete_id acknowledgement, which is handled by the dispatcher calling
// Remove and then allowing Generate to walk forward past any gap —
// the counter itself never rewinds, matching the "never recycle unless
// delete_id says so" policy: a freed id becomes available for explicit
// reuse by the peer's own allocator, not by this side's monotonic one.
func (t *Table) Generate() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		id := t.next
		t.next++
		if _, exists := t.objects[id]; !exists {
			return id
		}
	}
}

// Len reports the number of live objects, used by metrics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects)
}

type collisionErr struct{ id uint32 }

func (e *collisionErr) Error() string { return "id already live in table" }
func errCollision(id uint32) error    { return &collisionErr{id: id} }
