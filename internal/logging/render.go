package logging

import (
	"fmt"
	"strings"
	"time"

	"github.com/wlmux/wlmux/internal/fdref"
)

// Direction is the arrow a log line carries: outgoing from the proxy
// or incoming to the proxy.
type Direction string

const (
	DirOutgoing Direction = "<="
	DirIncoming Direction = "->"
)

// Origin renders the "client#N" / "server" column.
func Origin(clientID int, isServer bool) string {
	if isServer {
		return "server"
	}
	return fmt.Sprintf("client#%d", clientID)
}

// RenderedArg is one already-formatted "name: value" argument.
type RenderedArg struct {
	Name  string
	Value string
}

// RenderU32 renders a plain unsigned argument.
func RenderU32(name string, v uint32) RenderedArg {
	return RenderedArg{Name: name, Value: fmt.Sprintf("%d", v)}
}

// RenderI32 renders a plain signed argument.
func RenderI32(name string, v int32) RenderedArg {
	return RenderedArg{Name: name, Value: fmt.Sprintf("%d", v)}
}

// RenderString renders a quoted string argument.
func RenderString(name, v string) RenderedArg {
	return RenderedArg{Name: name, Value: fmt.Sprintf("%q", v)}
}

// RenderArray renders a byte array as its length, since the contract
// only demands a canonical rendering, not a hex dump of every byte.
func RenderArray(name string, v []byte) RenderedArg {
	return RenderedArg{Name: name, Value: fmt.Sprintf("array[%d]", len(v))}
}

// RenderFd renders a file descriptor by its numeric value.
func RenderFd(name string, f *fdref.Ref) RenderedArg {
	if f == nil {
		return RenderedArg{Name: name, Value: "nil"}
	}
	return RenderedArg{Name: name, Value: fmt.Sprintf("fd %d", f.File().Fd())}
}

// RenderObject renders an object-typed argument as iface#id, or "nil"
// for an absent nullable reference.
func RenderObject(name, iface string, id uint32, present bool) RenderedArg {
	if !present {
		return RenderedArg{Name: name, Value: "nil"}
	}
	return RenderedArg{Name: name, Value: fmt.Sprintf("%s#%d", iface, id)}
}

// RenderEnum renders a symbolic enum value when symbols is non-nil and
// contains v; otherwise falls back to the bare numeric rendering.
func RenderEnum(name string, v uint32, symbols map[uint32]string) RenderedArg {
	if symbols != nil {
		if s, ok := symbols[v]; ok {
			return RenderedArg{Name: name, Value: s}
		}
	}
	return RenderU32(name, v)
}

func joinArgs(args []RenderedArg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name + ": " + a.Value
	}
	return strings.Join(parts, ", ")
}

// Line renders one complete log line:
// [MMMMMMM.uuu] <prefix><origin> <direction> <iface>#<id>.<opname>(<args>)
func Line(prefix, origin string, dir Direction, iface string, id uint32, opname string, args []RenderedArg) string {
	now := time.Now()
	millis := now.UnixNano() / int64(time.Millisecond)
	micros := (now.UnixNano() / int64(time.Microsecond)) % 1000
	return fmt.Sprintf("[%7d.%03d] %s%s %s %s#%d.%s(%s)",
		millis, micros, prefix, origin, dir, iface, id, opname, joinArgs(args))
}
