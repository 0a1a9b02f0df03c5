// pool.go implements a generic object pool with optional finalizers.

// Package pool provides a generic object pool for packets and frames.
package pool

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

// ReuseMemory disables pooling when false; useful to hunt use-after-put bugs.
var ReuseMemory = true

type Pool[T any] struct {
	sync.Pool
	ResetFunc func(*T)

	allocated atomic.Uint64
	reused    atomic.Uint64
}

// NewPool returns a pool; freeFunc may be nil, otherwise it is installed as
// the finalizer of every allocated object.
func NewPool[T any](
	allocFunc func() *T,
	resetFunc func(*T),
	freeFunc func(*T),
) *Pool[T] {
	p := &Pool[T]{
		ResetFunc: resetFunc,
	}
	p.Pool.New = func() any {
		p.allocated.Inc()
		v := allocFunc()
		if freeFunc != nil {
			runtime.SetFinalizer(v, func(v *T) {
				freeFunc(v)
			})
		}
		return v
	}
	return p
}

func (p *Pool[T]) Get() *T {
	v := p.Pool.Get().(*T)
	p.reused.Inc()
	return v
}

func (p *Pool[T]) Put(items ...*T) {
	if !ReuseMemory {
		return
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		if p.ResetFunc != nil {
			p.ResetFunc(item)
		}
		p.Pool.Put(item)
	}
}

// Stats returns how many objects were allocated and how many were handed
// out in total.
func (p *Pool[T]) Stats() (allocated, gets uint64) {
	return p.allocated.Load(), p.reused.Load()
}
