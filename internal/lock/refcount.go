// Package lock holds small synchronization helpers shared by storage layers.
package lock

import (
	"fmt"
	"sync/atomic"
)

// RefCount counts open users of a shared resource. It starts at one, for the
// user that created it.
type RefCount struct {
	count atomic.Int32
}

func NewRefCount() *RefCount {
	r := &RefCount{}
	r.count.Store(1)
	return r
}

func (r *RefCount) Inc() {
	r.count.Add(1)
}

// Dec releases one user and reports whether it was the last.
func (r *RefCount) Dec() bool {
	n := r.count.Add(-1)
	if n < 0 {
		panic("lock: refcount dropped below zero")
	}
	return n == 0
}

func (r *RefCount) Get() int32 {
	return r.count.Load()
}

func (r *RefCount) String() string {
	return fmt.Sprintf("refs=%d", r.Get())
}
