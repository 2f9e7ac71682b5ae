// Package anello provides fixed-capacity generic ring buffers
// for decoupling producers and consumers.
package anello

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNothingToRead is returned by [Buffer.Read] when the buffer is empty.
var ErrNothingToRead = errors.New("ring buffer: nothing to read")

// ErrBufferBusy is returned by [Buffer.Write] when the buffer has no free slot.
var ErrBufferBusy = errors.New("ring buffer: buffer is full")

// DefaultCapacity is the slot count used by [NewDefaultBuffer].
const DefaultCapacity = 20

// Buffer is a fixed-capacity generic ring buffer guarded by a single mutex.
//
// One slot is always kept empty to distinguish a full buffer from an empty
// one using only the two cursors, so a buffer of capacity n holds at most
// n-1 elements. Reads drain the buffer completely, oldest element first,
// which makes the buffer a natural staging area for batch consumers.
//
// All methods are safe for concurrent use. No method blocks waiting for
// space or data: when an operation is not currently possible it fails
// immediately with [ErrNothingToRead] or [ErrBufferBusy], both of which
// are transient. Retry policy belongs to the caller.
type Buffer[T any] struct {
	mux sync.Mutex

	// buf has one slot per element; readPos/writePos are slot indexes
	// that only move forward, wrapping at len(buf).
	buf      []T
	readPos  int
	writePos int
}

// NewBuffer returns a new [Buffer] with the given slot count.
// It panics if capacity is lower than 2, since at least two slots are
// needed to represent both the empty and the full state.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 1 {
		panic(fmt.Sprintf("anello: buffer capacity must be greater than 1, got %d", capacity))
	}

	return &Buffer[T]{
		buf: make([]T, capacity),
	}
}

// NewDefaultBuffer returns a new [Buffer] with [DefaultCapacity] slots.
func NewDefaultBuffer[T any]() *Buffer[T] {
	return NewBuffer[T](DefaultCapacity)
}

func (b *Buffer[T]) nextIndex(index int) int {
	return (index + 1) % len(b.buf)
}

func (b *Buffer[T]) canRead() bool {
	return b.readPos != b.writePos
}

func (b *Buffer[T]) canWrite() bool {
	return b.nextIndex(b.writePos) != b.readPos
}

func (b *Buffer[T]) length() int {
	if b.writePos >= b.readPos {
		return b.writePos - b.readPos
	}

	return b.writePos + len(b.buf) - b.readPos
}

// CanRead states whether the buffer holds at least one element.
func (b *Buffer[T]) CanRead() bool {
	b.mux.Lock()
	defer b.mux.Unlock()

	return b.canRead()
}

// CanWrite states whether the buffer has at least one free slot.
// It is independent of how many elements a caller intends to offer:
// a following [Buffer.Write] may still be partial.
func (b *Buffer[T]) CanWrite() bool {
	b.mux.Lock()
	defer b.mux.Unlock()

	return b.canWrite()
}

// Read drains the buffer and returns the elements in write order,
// oldest first. After a successful call the buffer is empty.
//
// Returns [ErrNothingToRead] if the buffer is empty.
func (b *Buffer[T]) Read() ([]T, error) {
	b.mux.Lock()
	defer b.mux.Unlock()

	if !b.canRead() {
		return nil, ErrNothingToRead
	}

	var zero T

	items := make([]T, 0, b.length())
	for b.readPos != b.writePos {
		items = append(items, b.buf[b.readPos])

		// Release the slot so drained values can be collected
		b.buf[b.readPos] = zero

		b.readPos = b.nextIndex(b.readPos)
	}

	return items, nil
}

// Write stores as many of the given elements as the free slots allow,
// in order. It returns the number of elements stored and the unwritten
// remainder of the input. The input slice is never modified: callers
// that want to retry only what is still pending adopt the returned
// remainder, the others ignore it.
//
// A partial write is a normal outcome, not an error. Writing an empty
// slice is a no-op. Returns [ErrBufferBusy] only when the buffer has
// zero free slots at call time.
func (b *Buffer[T]) Write(items []T) (int, []T, error) {
	b.mux.Lock()
	defer b.mux.Unlock()

	if len(items) == 0 {
		return 0, nil, nil
	}

	if !b.canWrite() {
		return 0, items, ErrBufferBusy
	}

	written := 0
	for b.canWrite() && written < len(items) {
		b.buf[b.writePos] = items[written]

		b.writePos = b.nextIndex(b.writePos)
		written++
	}

	return written, items[written:], nil
}

// Len returns the number of unread elements.
func (b *Buffer[T]) Len() int {
	b.mux.Lock()
	defer b.mux.Unlock()

	return b.length()
}

// Cap returns the slot count the buffer was built with.
// The buffer holds at most Cap()-1 elements.
func (b *Buffer[T]) Cap() int {
	return len(b.buf)
}

// Reset empties the buffer and zeroes its storage.
func (b *Buffer[T]) Reset() {
	b.mux.Lock()
	defer b.mux.Unlock()

	clear(b.buf)
	b.readPos = 0
	b.writePos = 0
}
