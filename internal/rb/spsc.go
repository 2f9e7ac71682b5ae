package rb

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// spsc is a single producer/single consumer core. The head cursor is
// owned by the producer, the tail cursor by the consumer: each side
// only ever writes its own cursor, so plain atomic loads and stores
// are enough. Cursors grow without wrapping; the capacity mask maps
// them to slots.
type spsc[T any] struct {
	head atomic.Uint64

	_ cpu.CacheLinePad

	tail atomic.Uint64

	_ cpu.CacheLinePad

	capacity uint64
	capMask  uint64

	_ cpu.CacheLinePad

	buf []T
}

func newSPSC[T any](capacity uint32) *spsc[T] {
	return &spsc[T]{
		capacity: uint64(capacity),
		capMask:  uint64(capacity) - 1,

		buf: make([]T, capacity),
	}
}

func (b *spsc[T]) Push(item T) bool {
	head := b.head.Load()
	tail := b.tail.Load()

	if head-tail >= b.capacity {
		// Buffer is full
		return false
	}

	b.buf[head&b.capMask] = item
	b.head.Add(1)

	return true
}

func (b *spsc[T]) Pop() (T, bool) {
	var zero T

	head := b.head.Load()
	tail := b.tail.Load()

	if head == tail {
		// Buffer is empty
		return zero, false
	}

	index := tail & b.capMask
	item := b.buf[index]
	b.buf[index] = zero

	b.tail.Add(1)

	return item, true
}

func (b *spsc[T]) Len() uint32 {
	head := b.head.Load()
	tail := b.tail.Load()

	if head < tail {
		return uint32(head + b.capacity - tail)
	}

	return uint32(head - tail)
}
