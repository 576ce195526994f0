// +build !windows

// Package endpoint implements C6: one connection's socket, its
// incoming/outgoing word and fd queues, and the flush-coalescing flag.
package endpoint

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wlmux/wlmux/internal/fdref"
	"github.com/wlmux/wlmux/internal/wire"
)

// Dispatcher is called once per complete message extracted from the
// incoming stream; receiver/opcode are pulled from the header, payload
// is the remaining words, fds is this message's slice of the fd queue.
// The callee takes ownership of every ref in fds and must retain or
// release each one.
type Dispatcher func(receiver uint32, opcode uint16, payload []uint32, fds []*fdref.Ref) error

// Scheduler lets an endpoint tell the event loop it has become
// flush-queued, enforcing an at-most-one-scheduled-flush-per-tick rule.
type Scheduler func(e *Endpoint)

// Endpoint is one side of one connection.
type Endpoint struct {
	ID       int
	IsServer bool

	conn *net.UnixConn

	mu          sync.Mutex
	inBuf       []byte
	inFds       []*fdref.Ref
	outWords    []uint32
	outFds      []*fdref.Ref
	flushQueued bool

	dispatch  Dispatcher
	scheduler Scheduler

	closed bool
}

// New wraps conn as an endpoint. dispatch is invoked synchronously from
// within Drain for each complete message; scheduler is invoked at most
// once per flush cycle when the endpoint transitions to flush-queued.
func New(conn *net.UnixConn, id int, isServer bool, dispatch Dispatcher, scheduler Scheduler) *Endpoint {
	return &Endpoint{
		ID:        id,
		IsServer:  isServer,
		conn:      conn,
		dispatch:  dispatch,
		scheduler: scheduler,
	}
}

// Conn exposes the underlying connection for the event loop's poll set.
func (e *Endpoint) Conn() *net.UnixConn { return e.conn }

const readBufSize = 64 * 1024
const oobBufSize = 4096 // enough ancillary space for a burst of SCM_RIGHTS fds

// Drain reads from the socket, blocking until data (or an error)
// arrives, and dispatches every complete message extracted. It returns
// io.EOF-wrapping errors unchanged so the event loop can tear down the
// connection pair.
func (e *Endpoint) Drain() error {
	buf := make([]byte, readBufSize)
	oob := make([]byte, oobBufSize)
	for {
		n, oobn, _, _, err := e.conn.ReadMsgUnix(buf, oob)
		if n == 0 && oobn == 0 {
			if err != nil {
				return err
			}
			return nil
		}
		fds, ferr := parseFds(oob[:oobn])
		if ferr != nil {
			return ferr
		}
		if ingestErr := e.ingest(buf[:n], fds); ingestErr != nil {
			return ingestErr
		}
		if err != nil {
			return err
		}
		if n < len(buf) {
			return nil
		}
	}
}

// parseFds wraps every descriptor recovered from ancillary data in a
// fdref.Ref the instant it is created, so it is never held as a bare
// *os.File outside of reference-counted ownership.
func parseFds(oob []byte) ([]*fdref.Ref, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var refs []*fdref.Ref
	for _, m := range msgs {
		fds, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			refs = append(refs, fdref.New(os.NewFile(uintptr(fd), "wlmux-fd")))
		}
	}
	return refs, nil
}

// ingest appends newly-read bytes/fds and extracts every complete
// message the accumulated buffer now contains.
func (e *Endpoint) ingest(data []byte, fds []*fdref.Ref) error {
	e.mu.Lock()
	e.inBuf = append(e.inBuf, data...)
	e.inFds = append(e.inFds, fds...)
	e.mu.Unlock()

	for {
		msg, msgFds, ok, err := e.extractOne()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		receiver := msg[0]
		opcode := uint16(msg[1] & 0xffff)
		if err := e.dispatch(receiver, opcode, msg[wire.HeaderWords:], msgFds); err != nil {
			return err
		}
	}
}

// extractOne pulls one complete, header-length-prefixed message off the
// front of the incoming buffer, converting its bytes to native words.
func (e *Endpoint) extractOne() ([]uint32, []*fdref.Ref, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.inBuf) < 8 {
		return nil, nil, false, nil
	}
	header1 := binary.LittleEndian.Uint32(e.inBuf[4:8])
	totalBytes := int(header1 >> 16)
	if totalBytes < 8 || totalBytes%4 != 0 {
		return nil, nil, false, fmt.Errorf("wire: invalid message length %d", totalBytes)
	}
	if len(e.inBuf) < totalBytes {
		return nil, nil, false, nil
	}
	raw := e.inBuf[:totalBytes]
	e.inBuf = e.inBuf[totalBytes:]

	words := make([]uint32, totalBytes/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}

	// fd count is not self-describing on the wire; the dispatcher
	// consumes exactly as many as the message's signature declares, so
	// we hand over the whole current fd queue and let it take what it
	// needs in order, per invariant 4.
	fds := e.inFds
	e.inFds = nil
	return words, fds, true, nil
}

// Formatter returns a fresh wire.Formatter for building one outgoing
// message; call Enqueue with its Finish() result to append it.
func (e *Endpoint) Formatter() *wire.Formatter { return wire.NewFormatter() }

// Enqueue appends a fully-formed message's words and fds to the
// outgoing buffers and schedules a flush if this is the first pending
// message since the last drain, coalescing repeated schedule calls.
// Ownership of every ref in fds passes to the endpoint: Flush releases
// each one once it has been written.
func (e *Endpoint) Enqueue(words []uint32, fds []*fdref.Ref) {
	e.mu.Lock()
	e.outWords = append(e.outWords, words...)
	e.outFds = append(e.outFds, fds...)
	wasQueued := e.flushQueued
	e.flushQueued = true
	e.mu.Unlock()
	if !wasQueued && e.scheduler != nil {
		e.scheduler(e)
	}
}

// FlushQueued reports whether this endpoint has pending outgoing data.
func (e *Endpoint) FlushQueued() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushQueued
}

// Flush writes as much outgoing data as the kernel accepts. A short
// write, or data enqueued while the write was in flight, is retained
// and the endpoint is handed to its scheduler again for the next call;
// once fully drained the flush-queued flag clears.
func (e *Endpoint) Flush() error {
	e.mu.Lock()
	words := e.outWords
	fds := e.outFds
	e.mu.Unlock()
	if len(words) == 0 {
		e.mu.Lock()
		e.flushQueued = false
		e.mu.Unlock()
		return nil
	}

	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}

	var oob []byte
	if len(fds) > 0 {
		raw := make([]int, len(fds))
		for i, f := range fds {
			raw[i] = int(f.File().Fd())
		}
		oob = unix.UnixRights(raw...)
	}

	n, _, err := e.conn.WriteMsgUnix(buf, oob, nil)
	if err != nil {
		return err
	}

	e.mu.Lock()
	consumedWords := n / 4
	e.outWords = e.outWords[consumedWords:]
	if len(oob) > 0 {
		// WriteMsgUnix sends all ancillary data with this one syscall
		// regardless of a short byte write; the kernel has its own
		// copy via SCM_RIGHTS, so this endpoint's reference is done.
		// Fds enqueued while the write was in flight stay queued.
		for _, f := range fds {
			f.Release()
		}
		e.outFds = e.outFds[len(fds):]
	}
	pending := len(e.outWords) != 0
	if !pending {
		e.flushQueued = false
	}
	e.mu.Unlock()
	if pending && e.scheduler != nil {
		e.scheduler(e)
	}
	return nil
}

// Close tears down the underlying connection. Idempotent. Any fds
// still sitting in the in/out queues (an incomplete message, or
// outgoing data the peer disappeared before accepting) are released
// rather than left open.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	inFds, outFds := e.inFds, e.outFds
	e.inFds, e.outFds = nil, nil
	e.mu.Unlock()
	for _, f := range inFds {
		f.Release()
	}
	for _, f := range outFds {
		f.Release()
	}
	return e.conn.Close()
}
