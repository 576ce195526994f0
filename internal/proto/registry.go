// Package proto is the interface registry (C4): a compile-time catalogue
// of interfaces, their request/event signatures, and per-message argument
// metadata. In a full deployment this file's tables would be emitted by
// an XML-to-Go generator run once per protocol extension; this repository
// hand-writes a representative subset instead.
package proto

import "github.com/blang/semver"

// ArgKind enumerates the wire argument kinds.
type ArgKind int

const (
	KindU32 ArgKind = iota
	KindI32
	KindFixed
	KindString
	KindArray
	KindObject
	KindNewID
	KindFd
	KindEnum
	KindBitfield
)

// Arg describes one message argument: name, kind, nullability, and (for
// object/new_id args) the interface constraint the registry enforces as
// WrongObjectType.
type Arg struct {
	Name      string
	Kind      ArgKind
	Nullable  bool
	Interface string // non-empty for KindObject / KindNewID
}

// Message describes one request or event: its opcode, name, argument
// list, the version it became available ("since"), an optional
// deprecation version, whether it destroys the receiver on completion
// (a "destructor"), and whether forwarding is restricted to objects
// bound on the same client endpoint as the receiver, modeled as this
// per-message flag rather than a universal rule.
type Message struct {
	Opcode         uint16
	Name           string
	Args           []Arg
	Since          uint32
	Deprecated     uint32 // 0 means not deprecated
	Destructor     bool
	SameClientOnly bool
}

// Interface is one entry in the registry: name, stable tag, version cap,
// and its request/event tables keyed by opcode.
type Interface struct {
	Name       string
	Tag        string
	MaxVersion uint32
	Requests   []Message
	Events     []Message
}

func (i *Interface) Request(opcode uint16) (Message, bool) {
	if int(opcode) < len(i.Requests) {
		m := i.Requests[opcode]
		if m.Name == "" {
			return Message{}, false
		}
		return m, true
	}
	return Message{}, false
}

func (i *Interface) Event(opcode uint16) (Message, bool) {
	if int(opcode) < len(i.Events) {
		m := i.Events[opcode]
		if m.Name == "" {
			return Message{}, false
		}
		return m, true
	}
	return Message{}, false
}

// RequestName/EventName resolve an opcode to a message name for
// logging, defaulting to a numeric placeholder when the opcode is
// unknown so logging never fails closed.
func (i *Interface) RequestName(opcode uint16) string {
	if m, ok := i.Request(opcode); ok {
		return m.Name
	}
	return "?"
}

func (i *Interface) EventName(opcode uint16) string {
	if m, ok := i.Event(opcode); ok {
		return m.Name
	}
	return "?"
}

// Registry is the full catalogue, looked up by interface name.
type Registry struct {
	byName map[string]*Interface
}

// BuildVersion is the registry's own semver build identity. It is not
// what internal/control's /version route serves; that route reports
// internal/version.Current.
var BuildVersion = semver.MustParse("0.1.0")

// NewRegistry constructs the catalogue populated by this package's
// interface definition files (display.go, shell.go, drm.go, cosmic.go).
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Interface)}
	for _, iface := range allInterfaces() {
		r.byName[iface.Name] = iface
	}
	return r
}

func (r *Registry) Lookup(name string) (*Interface, bool) {
	iface, ok := r.byName[name]
	return iface, ok
}

// UpgradeReadyEvents is the compile-time choice recorded in DESIGN.md:
// the proxy never synthesizes a ready2 event from a ready event (or
// vice versa); both are forwarded opaquely. Flipping this to true is
// out of scope until a future change defines the upgrade's
// argument-rewriting rules.
const UpgradeReadyEvents = false
