package rb

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

type slot[T any] struct {
	// ready is true while the slot holds a value that has not been
	// consumed yet. It keeps a producer from reusing a slot a consumer
	// claimed but has not finished reading.
	ready atomic.Bool
	data  T
}

// mpmc is a multiple producer/multiple consumer core. Head and tail
// share a single uint64 (head in the top 32 bits, tail in the bottom)
// so both cursors are read with one atomic load and advanced with a
// compare-and-swap.
type mpmc[T any] struct {
	headTail atomic.Uint64

	_ cpu.CacheLinePad

	capacity uint32
	capMask  uint32

	_ cpu.CacheLinePad

	buf []slot[T]
}

func newMPMC[T any](capacity uint32) *mpmc[T] {
	return &mpmc[T]{
		capacity: capacity,
		capMask:  capacity - 1,

		buf: make([]slot[T], capacity),
	}
}

func pack(head, tail uint32) uint64 {
	const mask = 1<<32 - 1
	return uint64(head)<<32 | uint64(tail&mask)
}

func unpack(headTail uint64) (head, tail uint32) {
	const mask = 1<<32 - 1
	head = uint32((headTail >> 32) & mask)
	tail = uint32(headTail & mask)
	return
}

func (b *mpmc[T]) Push(item T) bool {
	for {
		headTail := b.headTail.Load()
		head, tail := unpack(headTail)

		if head-tail >= b.capacity {
			// Buffer is full
			return false
		}

		slot := &b.buf[head&b.capMask]

		// The slot still holds an unconsumed value, wait for the
		// consumer to release it
		if slot.ready.Load() {
			runtime.Gosched()
			continue
		}

		// Claim the slot by advancing head
		if !b.headTail.CompareAndSwap(headTail, pack(head+1, tail)) {
			runtime.Gosched()
			continue
		}

		slot.data = item
		slot.ready.Store(true)

		return true
	}
}

func (b *mpmc[T]) Pop() (T, bool) {
	for {
		headTail := b.headTail.Load()
		head, tail := unpack(headTail)

		if head == tail {
			// Buffer is empty
			return *new(T), false
		}

		slot := &b.buf[tail&b.capMask]

		// The producer claimed the slot but has not stored the value yet
		if !slot.ready.Load() {
			runtime.Gosched()
			continue
		}

		// Claim the slot by advancing tail
		if !b.headTail.CompareAndSwap(headTail, pack(head, tail+1)) {
			runtime.Gosched()
			continue
		}

		item := slot.data
		slot.data = *new(T)
		slot.ready.Store(false)

		return item, true
	}
}

func (b *mpmc[T]) Len() uint32 {
	head, tail := unpack(b.headTail.Load())

	if head < tail {
		return head + b.capacity - tail
	}

	return head - tail
}
