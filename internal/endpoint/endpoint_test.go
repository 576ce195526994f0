// +build !windows

package endpoint

import (
	"testing"

	"github.com/wlmux/wlmux/internal/fdref"
	"github.com/wlmux/wlmux/internal/wire"
)

func wordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return buf
}

func TestIngestSingleMessage(t *testing.T) {
	f := wire.NewFormatter()
	f.U32(42)
	words, _ := f.Finish(7, 3)
	buf := wordsToBytes(words)

	var gotReceiver uint32
	var gotOpcode uint16
	var gotPayload []uint32
	e := &Endpoint{dispatch: func(receiver uint32, opcode uint16, payload []uint32, fds []*fdref.Ref) error {
		gotReceiver = receiver
		gotOpcode = opcode
		gotPayload = payload
		return nil
	}}

	if err := e.ingest(buf, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if gotReceiver != 7 {
		t.Fatalf("receiver: got %d, want 7", gotReceiver)
	}
	if gotOpcode != 3 {
		t.Fatalf("opcode: got %d, want 3", gotOpcode)
	}
	if len(gotPayload) != 1 || gotPayload[0] != 42 {
		t.Fatalf("payload: got %v, want [42]", gotPayload)
	}
}

func TestIngestPartialMessageWaits(t *testing.T) {
	f := wire.NewFormatter()
	f.U32(1)
	f.U32(2)
	words, _ := f.Finish(1, 0)
	buf := wordsToBytes(words)

	called := false
	e := &Endpoint{dispatch: func(uint32, uint16, []uint32, []*fdref.Ref) error {
		called = true
		return nil
	}}

	if err := e.ingest(buf[:len(buf)-4], nil); err != nil {
		t.Fatalf("ingest partial: %v", err)
	}
	if called {
		t.Fatal("dispatch must not fire before the message is complete")
	}
	if err := e.ingest(buf[len(buf)-4:], nil); err != nil {
		t.Fatalf("ingest remainder: %v", err)
	}
	if !called {
		t.Fatal("dispatch must fire once the message completes")
	}
}

func TestEnqueueSchedulesOnce(t *testing.T) {
	calls := 0
	e := &Endpoint{scheduler: func(*Endpoint) { calls++ }}
	e.Enqueue([]uint32{1, 2}, nil)
	e.Enqueue([]uint32{3}, nil)
	if calls != 1 {
		t.Fatalf("scheduler called %d times, want 1 (coalesced)", calls)
	}
	if !e.FlushQueued() {
		t.Fatal("expected FlushQueued true after Enqueue")
	}
}
