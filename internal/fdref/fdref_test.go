package fdref

import (
	"os"
	"testing"
)

func TestClosedOnceAtZero(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	w.Close()

	ref := New(r)
	ref2 := ref.Retain()
	if ref2 != ref {
		t.Fatal("Retain must return the same handle")
	}

	if err := ref.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	// fd still open: one reference remains.
	if err := ref.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestOverReleasePanics(t *testing.T) {
	r, w, _ := os.Pipe()
	w.Close()
	ref := New(r)
	ref.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on over-release")
		}
	}()
	ref.Release()
}
