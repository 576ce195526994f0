// Package protoerr defines the typed error taxonomy the dispatcher and
// endpoint layers raise, and the propagation policy attached to each kind.
package protoerr

import "fmt"

// Kind tags an Error with the propagation policy from the error table:
// whether the surfacing code should tear down the connection pair or
// merely log and drop the offending send.
type Kind int

const (
	KindUnknown Kind = iota
	KindReceiverNoServerId
	KindReceiverNoClient
	KindArgNoServerId
	KindArgNoClientId
	KindNoClientObject
	KindNoServerObject
	KindWrongObjectType
	KindWrongMessageSize
	KindTrailingBytes
	KindMissingArgument
	KindMissingFd
	KindUnknownMessageId
	KindHandlerBorrowed
	KindGenerateServerId
	KindGenerateClientId
	KindSetClientId
	KindSetServerId
)

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	KindReceiverNoServerId: "ReceiverNoServerId",
	KindReceiverNoClient:   "ReceiverNoClient",
	KindArgNoServerId:      "ArgNoServerId",
	KindArgNoClientId:      "ArgNoClientId",
	KindNoClientObject:     "NoClientObject",
	KindNoServerObject:     "NoServerObject",
	KindWrongObjectType:    "WrongObjectType",
	KindWrongMessageSize:   "WrongMessageSize",
	KindTrailingBytes:      "TrailingBytes",
	KindMissingArgument:    "MissingArgument",
	KindMissingFd:          "MissingFd",
	KindUnknownMessageId:   "UnknownMessageId",
	KindHandlerBorrowed:    "HandlerBorrowed",
	KindGenerateServerId:   "GenerateServerId",
	KindGenerateClientId:   "GenerateClientId",
	KindSetClientId:        "SetClientId",
	KindSetServerId:        "SetServerId",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// TearsDown reports whether an error of this kind must tear down the
// connection pair that raised it. The two "no server id" / "no client
// id" pairs never tear down: they are the try_send_* surface, logged
// and swallowed because they only fire on a transient, recoverable
// not-yet-bound condition.
func (k Kind) TearsDown() bool {
	switch k {
	case KindReceiverNoServerId, KindReceiverNoClient, KindArgNoServerId, KindArgNoClientId:
		return false
	default:
		return true
	}
}

// Error is a protocol error carrying its Kind alongside the usual message.
type Error struct {
	Kind Kind
	Op   string // the operation/message name involved, for logging
	Err  error  // underlying detail, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, detail error) *Error {
	return &Error{Kind: kind, Op: op, Err: detail}
}

// Constructors named after the error table, in the same flat error-var
// style as a package of sentinel errors, each carrying a Kind a bare
// error var couldn't express.

func ReceiverNoServerId(op string, id uint32) *Error {
	return New(KindReceiverNoServerId, op, fmt.Errorf("id %d not bound on server side", id))
}

func ReceiverNoClient(op string, id uint32) *Error {
	return New(KindReceiverNoClient, op, fmt.Errorf("id %d not bound on client side", id))
}

func ArgNoServerId(op, arg string, id uint32) *Error {
	return New(KindArgNoServerId, op, fmt.Errorf("argument %q (id %d) not bound on server side", arg, id))
}

func ArgNoClientId(op, arg string, id uint32) *Error {
	return New(KindArgNoClientId, op, fmt.Errorf("argument %q (id %d) not bound on client side", arg, id))
}

func NoClientObject(id uint32) *Error {
	return New(KindNoClientObject, "dispatch", fmt.Errorf("no live client object %d", id))
}

func NoServerObject(id uint32) *Error {
	return New(KindNoServerObject, "dispatch", fmt.Errorf("no live server object %d", id))
}

func WrongObjectType(arg, got, want string) *Error {
	return New(KindWrongObjectType, arg, fmt.Errorf("%s: got %s, want %s", arg, got, want))
}

func WrongMessageSize(op string, actual, expected int) *Error {
	return New(KindWrongMessageSize, op, fmt.Errorf("actual %d, expected %d", actual, expected))
}

func TrailingBytes(op string, n int) *Error {
	return New(KindTrailingBytes, op, fmt.Errorf("%d trailing bytes", n))
}

func MissingArgument(op, name string) *Error {
	return New(KindMissingArgument, op, fmt.Errorf("missing argument %q", name))
}

func MissingFd(op, name string) *Error {
	return New(KindMissingFd, op, fmt.Errorf("missing fd for argument %q", name))
}

func UnknownMessageId(iface string, opcode uint16) *Error {
	return New(KindUnknownMessageId, iface, fmt.Errorf("opcode %d out of range", opcode))
}

func HandlerBorrowed(iface string, id uint32) *Error {
	return New(KindHandlerBorrowed, iface, fmt.Errorf("handler for %s#%d already borrowed", iface, id))
}

func GenerateServerId(op string, err error) *Error {
	return New(KindGenerateServerId, op, err)
}

func GenerateClientId(op string, err error) *Error {
	return New(KindGenerateClientId, op, err)
}

func SetClientId(op string, id uint32) *Error {
	return New(KindSetClientId, op, fmt.Errorf("id %d already live on client side", id))
}

func SetServerId(op string, id uint32) *Error {
	return New(KindSetServerId, op, fmt.Errorf("id %d already live on server side", id))
}
