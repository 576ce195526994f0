package object

import (
	lru "github.com/hashicorp/golang-lru"
)

// AuditSize bounds how many recent delete_id reclamations and dispatch
// errors an audit trail remembers; it exists for operator
// diagnostics (served over internal/control), not for protocol logic.
const AuditSize = 256

// Audit is a bounded recent-history ring of id reclamations and
// dispatch errors for every connection that records into it (one
// connection, or the whole daemon when shared), backed by an LRU so the oldest
// entries age out under sustained traffic instead of growing forever.
type Audit struct {
	deletes *lru.Cache
	errors  *lru.Cache
}

// NewAudit constructs a bounded audit trail. The cache sizes are fixed
// at AuditSize; errors constructing them only occur for a non-positive
// size, which never happens here, so they are not propagated.
func NewAudit() *Audit {
	deletes, _ := lru.New(AuditSize)
	errors, _ := lru.New(AuditSize)
	return &Audit{deletes: deletes, errors: errors}
}

// RecordDelete notes that id was reclaimed via delete_id.
func (a *Audit) RecordDelete(id uint32, iface string) {
	a.deletes.Add(id, iface)
}

// RecentDeletes returns the ids most recently reclaimed, newest first.
func (a *Audit) RecentDeletes() []uint32 {
	keys := a.deletes.Keys()
	out := make([]uint32, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if id, ok := keys[i].(uint32); ok {
			out = append(out, id)
		}
	}
	return out
}

// RecordError notes a dispatch error keyed by a monotonic sequence
// number supplied by the caller (the dispatcher's message counter).
func (a *Audit) RecordError(seq uint64, err error) {
	a.errors.Add(seq, err.Error())
}

// RecentErrors returns the most recent error strings, newest first.
func (a *Audit) RecentErrors() []string {
	keys := a.errors.Keys()
	out := make([]string, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := a.errors.Get(keys[i]); ok {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
