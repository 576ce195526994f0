package wire

import (
	"os"
	"testing"

	"github.com/wlmux/wlmux/internal/fdref"
)

func TestStringRoundTrip(t *testing.T) {
	f := NewFormatter()
	f.String("hello")
	words, _ := f.Finish(1, 0)
	p := NewParser(words[HeaderWords:], nil)
	s, err := p.StringAt("s")
	if err != nil {
		t.Fatalf("StringAt: %v", err)
	}
	if s != "hello" {
		t.Fatalf("got %q, want %q", s, "hello")
	}
	if p.Remaining() != 0 {
		t.Fatalf("expected no trailing words, got %d", p.Remaining())
	}
}

func TestArrayRoundTrip(t *testing.T) {
	f := NewFormatter()
	data := []byte{1, 2, 3, 4, 5}
	f.Array(data)
	words, _ := f.Finish(1, 0)
	p := NewParser(words[HeaderWords:], nil)
	got, err := p.ArrayAt("a")
	if err != nil {
		t.Fatalf("ArrayAt: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("got len %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], data[i])
		}
	}
}

func TestHeaderPacking(t *testing.T) {
	f := NewFormatter()
	f.U32(5)
	words, _ := f.Finish(2, 1)
	if words[0] != 2 {
		t.Fatalf("receiver id: got %d, want 2", words[0])
	}
	wantLen := uint32(12) // 2 header words + 1 payload word, *4 bytes
	gotLen := words[1] >> 16
	if gotLen != wantLen {
		t.Fatalf("length: got %d, want %d", gotLen, wantLen)
	}
	if words[1]&0xffff != 1 {
		t.Fatalf("opcode: got %d, want 1", words[1]&0xffff)
	}
	if words[2] != 5 {
		t.Fatalf("payload word: got %d, want 5", words[2])
	}
}

func TestMissingArgument(t *testing.T) {
	p := NewParser(nil, nil)
	if _, err := p.U32("x"); err == nil {
		t.Fatal("expected error on empty parser")
	}
}

func TestFdOrdering(t *testing.T) {
	// fds are dequeued strictly in arrival order regardless of how many
	// payload words precede them in the signature.
	a, b, c := fdref.New(&os.File{}), fdref.New(&os.File{}), fdref.New(&os.File{})
	p := NewParser(nil, []*fdref.Ref{a, b, c})
	got1, _ := p.FdDequeue("one")
	got2, _ := p.FdDequeue("two")
	got3, _ := p.FdDequeue("three")
	if got1 != a || got2 != b || got3 != c {
		t.Fatal("fds dequeued out of arrival order")
	}
	if _, err := p.FdDequeue("four"); err == nil {
		t.Fatal("expected MissingFd once queue exhausted")
	}
}
