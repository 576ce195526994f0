// Package fdref provides reference-counted ownership of a file
// descriptor so the same fd can sit in an outgoing buffer after the
// incoming-side owner has released it. The fd is closed exactly once,
// when the last reference drops.
package fdref

import (
	"os"
	"sync"
)

// Ref is a reference-counted handle to an *os.File. The zero value is
// not usable; construct with New.
type Ref struct {
	mu    sync.Mutex
	file  *os.File
	count int
}

// New wraps f with an initial reference count of one.
func New(f *os.File) *Ref {
	return &Ref{file: f, count: 1}
}

// Retain increments the reference count and returns the same handle,
// so call sites can chain r := r.Retain() at the point they hand a
// second owner the fd.
func (r *Ref) Retain() *Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r
}

// File returns the underlying descriptor for use in a syscall. The
// caller must not close it directly; release ownership via Release.
func (r *Ref) File() *os.File {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file
}

// Release drops one reference, closing the underlying fd once the
// count reaches zero. Calling Release more times than there are
// references is a programming error and panics, matching the
// single-process-single-writer assumption the rest of the proxy makes.
func (r *Ref) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count <= 0 {
		panic("fdref: Release called with no remaining references")
	}
	r.count--
	if r.count == 0 {
		return r.file.Close()
	}
	return nil
}
