// Package wire implements the 32-bit-word framed message codec: the
// formatter builds outgoing messages word by word, the parser decodes a
// borrowed word slice according to an interface's declared signature.
package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/wlmux/wlmux/internal/fdref"
	"github.com/wlmux/wlmux/internal/protoerr"
)

// HeaderWords is the number of words every message begins with: the
// receiver id and the packed (length<<16)|opcode word.
const HeaderWords = 2

// Fixed is a 24.8 signed fixed-point value, transmitted as a plain i32.
type Fixed int32

func FixedFromFloat(f float64) Fixed { return Fixed(f * 256) }
func (f Fixed) Float64() float64     { return float64(f) / 256 }

// Formatter accumulates outgoing words and fds for one message; Finish
// wraps them with the header for appending to an endpoint's outgoing
// buffer.
type Formatter struct {
	words []uint32
	fds   []*fdref.Ref
}

func NewFormatter() *Formatter { return &Formatter{} }

// Words appends raw words verbatim, used for the header and primitive args.
func (f *Formatter) Words(ws ...uint32) { f.words = append(f.words, ws...) }

func (f *Formatter) U32(v uint32) { f.Words(v) }
func (f *Formatter) I32(v int32)  { f.Words(uint32(v)) }
func (f *Formatter) Fixed(v Fixed) { f.Words(uint32(v)) }

// String appends the NUL-inclusive length word, the bytes, a trailing
// NUL, and zero-padding out to a 4-byte boundary.
func (f *Formatter) String(s string) {
	n := uint32(len(s) + 1)
	f.words = append(f.words, n)
	f.appendPaddedBytes(append([]byte(s), 0))
}

// Array appends the length word (no NUL) then the bytes, padded.
func (f *Formatter) Array(b []byte) {
	f.words = append(f.words, uint32(len(b)))
	f.appendPaddedBytes(b)
}

func (f *Formatter) appendPaddedBytes(b []byte) {
	padded := make([]byte, align4(len(b)))
	copy(padded, b)
	for i := 0; i < len(padded); i += 4 {
		f.words = append(f.words, binary.LittleEndian.Uint32(padded[i:i+4]))
	}
}

// Fd enqueues a file descriptor reference into the outgoing fd queue.
// It never emits payload words: fds travel out-of-band in ancillary
// data. Ownership of ref passes to the formatter; the caller must not
// release it afterward.
func (f *Formatter) Fd(ref *fdref.Ref) { f.fds = append(f.fds, ref) }

// Finish wraps the accumulated payload with a header for receiver id
// and opcode, returning the complete word slice and fd queue for one
// message. The length field is computed from the final word count.
func (f *Formatter) Finish(receiver uint32, opcode uint16) ([]uint32, []*fdref.Ref) {
	totalBytes := uint32((len(f.words) + HeaderWords) * 4)
	header := []uint32{receiver, (totalBytes << 16) | uint32(opcode)}
	return append(header, f.words...), f.fds
}

func align4(n int) int { return (n + 3) &^ 3 }

// Parser is a read-only view over one message's word slice, tracking the
// next unread fd for fd-typed arguments and the current word offset.
type Parser struct {
	words []uint32
	total int
	fds   []*fdref.Ref
	fdPos int
}

// NewParser wraps the payload words (header excluded) and the fds
// available for this message, consumed in arrival order.
func NewParser(payload []uint32, fds []*fdref.Ref) *Parser {
	return &Parser{words: payload, total: len(payload), fds: fds}
}

// Offset returns the number of words consumed so far, used by the
// dispatcher to locate which word of the original payload an
// object-typed argument occupied. TrailingBytes is detected through
// Remaining.
func (p *Parser) Offset() int { return p.total - len(p.words) }

// Remaining reports the number of words left unconsumed.
func (p *Parser) Remaining() int { return len(p.words) }

func (p *Parser) WordAt(name string) (uint32, error) {
	if len(p.words) == 0 {
		return 0, protoerr.MissingArgument("parse", name)
	}
	v := p.words[0]
	p.words = p.words[1:]
	return v, nil
}

func (p *Parser) U32(name string) (uint32, error) { return p.WordAt(name) }

func (p *Parser) I32(name string) (int32, error) {
	v, err := p.WordAt(name)
	return int32(v), err
}

func (p *Parser) FixedArg(name string) (Fixed, error) {
	v, err := p.WordAt(name)
	return Fixed(v), err
}

// StringAt reads a length-prefixed, NUL-terminated, padded string.
func (p *Parser) StringAt(name string) (string, error) {
	n, err := p.WordAt(name)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", protoerr.New(protoerr.KindMissingArgument, "parse", errStrLen(name))
	}
	raw, err := p.takePadded(int(n))
	if err != nil {
		return "", err
	}
	if raw[len(raw)-1] != 0 {
		return "", protoerr.New(protoerr.KindMissingArgument, "parse", errNotTerminated(name))
	}
	s := raw[:len(raw)-1]
	if !utf8.Valid(s) {
		return "", protoerr.New(protoerr.KindMissingArgument, "parse", errNotUTF8(name))
	}
	return string(s), nil
}

// ArrayAt reads a length-prefixed byte array (no NUL, no validation).
func (p *Parser) ArrayAt(name string) ([]byte, error) {
	n, err := p.WordAt(name)
	if err != nil {
		return nil, err
	}
	return p.takePadded(int(n))
}

func (p *Parser) takePadded(n int) ([]byte, error) {
	nwords := align4(n) / 4
	if len(p.words) < nwords {
		return nil, protoerr.MissingArgument("parse", "string/array payload")
	}
	out := make([]byte, align4(n))
	for i := 0; i < nwords; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], p.words[i])
	}
	p.words = p.words[nwords:]
	return out[:n], nil
}

// FdDequeue pops the next fd off the incoming fd queue in arrival
// order. Ownership of the returned ref passes to the caller, which
// must retain or release it; the parser no longer tracks it once
// dequeued.
func (p *Parser) FdDequeue(name string) (*fdref.Ref, error) {
	if p.fdPos >= len(p.fds) {
		return nil, protoerr.MissingFd("parse", name)
	}
	f := p.fds[p.fdPos]
	p.fdPos++
	return f, nil
}

// RemainingFds returns, and stops tracking, whatever fds this parser
// was handed but that no argument in the message consumed. The caller
// owns them afterward and must release them to avoid a leak: nothing
// else in the parser's lifetime will claim them.
func (p *Parser) RemainingFds() []*fdref.Ref {
	rest := p.fds[p.fdPos:]
	p.fdPos = len(p.fds)
	return rest
}

func errStrLen(name string) error      { return protoErrString(name, "zero length") }
func errNotTerminated(name string) error { return protoErrString(name, "not NUL-terminated") }
func errNotUTF8(name string) error     { return protoErrString(name, "not valid UTF-8") }

func protoErrString(name, reason string) error {
	return &stringErr{name: name, reason: reason}
}

type stringErr struct {
	name, reason string
}

func (e *stringErr) Error() string { return e.name + ": " + e.reason }
