// Package buffer provides reference-counted byte buffers with copy-on-write
// semantics, backing the payload of packets and frame planes.
package buffer

import (
	"go.uber.org/atomic"
)

type storage struct {
	data []byte
	refs atomic.Int32
}

// Buffer is one reference to a shared byte storage. Several Buffers may
// share a storage; mutating the bytes in place is allowed only while the
// reference is exclusive (see IsWritable and MakeWritable).
//
// A Buffer is not safe for concurrent use, but different references to
// the same storage may live in different goroutines.
type Buffer struct {
	storage *storage
}

// New returns an exclusive zero-filled buffer of the given size.
func New(size int) *Buffer {
	return FromBytes(make([]byte, size))
}

// FromBytes takes ownership of b.
func FromBytes(b []byte) *Buffer {
	s := &storage{data: b}
	s.refs.Store(1)
	return &Buffer{storage: s}
}

// Ref returns a new reference to the same storage.
func (b *Buffer) Ref() *Buffer {
	if b == nil || b.storage == nil {
		return nil
	}
	b.storage.refs.Inc()
	return &Buffer{storage: b.storage}
}

// Unref drops this reference; the Buffer becomes empty.
func (b *Buffer) Unref() {
	if b == nil || b.storage == nil {
		return
	}
	b.storage.refs.Dec()
	b.storage = nil
}

// RefCount returns the number of references to the storage.
func (b *Buffer) RefCount() int {
	if b == nil || b.storage == nil {
		return 0
	}
	return int(b.storage.refs.Load())
}

// Bytes returns the shared bytes; they must not be modified unless
// IsWritable is true.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.storage == nil {
		return nil
	}
	return b.storage.data
}

func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// IsWritable reports whether this is the only reference to the storage.
func (b *Buffer) IsWritable() bool {
	return b.RefCount() == 1
}

// MakeWritable makes the reference exclusive, copying the bytes if the
// storage is shared.
func (b *Buffer) MakeWritable() {
	if b == nil || b.storage == nil || b.IsWritable() {
		return
	}
	old := b.storage
	cpy := make([]byte, len(old.data))
	copy(cpy, old.data)
	b.storage = &storage{data: cpy}
	b.storage.refs.Store(1)
	old.refs.Dec()
}
