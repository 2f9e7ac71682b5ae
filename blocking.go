package anello

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/FerroO2000/anello/internal/rb"
	"golang.org/x/sys/cpu"
)

// ErrClosed is returned when a [BlockingBuffer] is closed.
var ErrClosed = errors.New("ring buffer: buffer is closed")

// Kind selects the lock-free core of a [BlockingBuffer].
type Kind = rb.Kind

const (
	// KindSPSC is the single producer/single consumer core.
	KindSPSC = rb.KindSPSC
	// KindMPMC is the multiple producer/multiple consumer core.
	KindMPMC = rb.KindMPMC
)

var maxSpins = runtime.NumCPU() * 32

// BlockingBuffer is a generic ring buffer built on a lock-free core.
// Unlike [Buffer], its operations move one element at a time and block
// until they can proceed: Write waits for a free slot, Read waits for
// an element. Waiters spin first and park on a condition variable when
// the buffer stays full or empty.
//
// The capacity is rounded up to the next power of two.
type BlockingBuffer[T any] struct {
	core rb.Core[T]

	_ cpu.CacheLinePad

	isClosed atomic.Bool

	_ cpu.CacheLinePad

	isFull atomic.Bool

	_ cpu.CacheLinePad

	isEmpty atomic.Bool

	_ cpu.CacheLinePad

	// notEmpty and notFull are used to signal that the buffer is not empty or full
	notEmpty *sync.Cond
	notFull  *sync.Cond
	mux      *sync.Mutex
}

// NewBlockingBuffer returns a new [BlockingBuffer] of the given kind.
func NewBlockingBuffer[T any](capacity uint32, kind Kind) *BlockingBuffer[T] {
	mux := &sync.Mutex{}

	return &BlockingBuffer[T]{
		core: rb.New[T](capacity, kind),

		mux:      mux,
		notEmpty: sync.NewCond(mux),
		notFull:  sync.NewCond(mux),
	}
}

func (b *BlockingBuffer[T]) wait(ctx context.Context, cond *sync.Cond) error {
	done := make(chan struct{})

	go func() {
		defer close(done)
		cond.Wait()
	}()

	select {
	case <-done:
		return nil

	case <-ctx.Done():
		// Wake up the waiting goroutine
		cond.Broadcast()
		<-done
		return ctx.Err()
	}
}

// Write adds an element to the buffer. It blocks until a slot is free.
//
// Returns [ErrClosed] if the buffer is closed.
func (b *BlockingBuffer[T]) Write(item T) error {
	if b.isClosed.Load() {
		return ErrClosed
	}

	for range maxSpins {
		if b.core.Push(item) {
			goto cleanup
		}

		// The buffer is full, yield to other goroutines
		runtime.Gosched()
	}

	for !b.core.Push(item) {
		// Buffer is still full, yield to other goroutines
		runtime.Gosched()

		if b.core.Push(item) {
			goto cleanup
		}

		// Buffer is full, wait for space
		b.mux.Lock()

		b.isFull.Store(true)

		if b.isClosed.Load() {
			b.mux.Unlock()
			return ErrClosed
		}

		b.notFull.Wait()

		// Someone signaled the buffer as not full
		b.mux.Unlock()
	}

cleanup:
	// If the buffer was marked as empty, signal that it no longer is
	if b.isEmpty.CompareAndSwap(true, false) {
		b.mux.Lock()
		b.notEmpty.Broadcast()
		b.mux.Unlock()
	}

	return nil
}

// Read retrieves an element from the buffer. It blocks until an
// element is available or the context is done.
//
// Returns [ErrClosed] if the buffer is closed.
func (b *BlockingBuffer[T]) Read(ctx context.Context) (T, error) {
	var item T
	var popOk bool

	for range maxSpins {
		item, popOk = b.core.Pop()
		if popOk {
			goto cleanup
		}

		// The buffer is empty, yield to other goroutines
		runtime.Gosched()
	}

	for {
		item, popOk = b.core.Pop()
		if popOk {
			goto cleanup
		}

		// Buffer is still empty, yield to other goroutines
		runtime.Gosched()

		item, popOk = b.core.Pop()
		if popOk {
			goto cleanup
		}

		// Buffer is empty, wait for data
		b.mux.Lock()

		b.isEmpty.Store(true)

		if b.isClosed.Load() {
			b.mux.Unlock()
			return item, ErrClosed
		}

		if err := b.wait(ctx, b.notEmpty); err != nil {
			b.mux.Unlock()
			return item, err
		}

		// Someone signaled the buffer as not empty
		b.mux.Unlock()
	}

cleanup:
	// If the buffer was marked as full, signal that it no longer is
	if b.isFull.CompareAndSwap(true, false) {
		b.mux.Lock()
		b.notFull.Broadcast()
		b.mux.Unlock()
	}

	return item, nil
}

// Len returns the number of elements in the buffer.
func (b *BlockingBuffer[T]) Len() uint32 {
	return b.core.Len()
}

// Close closes the buffer and wakes up all waiters.
func (b *BlockingBuffer[T]) Close() {
	if !b.isClosed.CompareAndSwap(false, true) {
		return
	}

	b.mux.Lock()
	b.notEmpty.Broadcast()
	b.notFull.Broadcast()
	b.mux.Unlock()
}
