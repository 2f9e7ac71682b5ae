// Package rb holds the lock-free ring buffer cores used by the
// blocking buffer facade.
package rb

// Kind selects the core implementation.
type Kind uint8

const (
	// KindSPSC is the single producer/single consumer core.
	KindSPSC Kind = iota
	// KindMPMC is the multiple producer/multiple consumer core.
	KindMPMC
)

func (k Kind) String() string {
	switch k {
	case KindSPSC:
		return "SPSC"
	case KindMPMC:
		return "MPMC"
	default:
		return "unknown"
	}
}

// Core is the non-blocking contract shared by the ring buffer cores.
// Push and Pop never wait: they report failure when the buffer is
// full or empty.
type Core[T any] interface {
	Push(item T) bool
	Pop() (T, bool)
	Len() uint32
}

// New returns a core of the given kind. The capacity is rounded up
// to the next power of two so indexes can wrap with a mask.
func New[T any](capacity uint32, kind Kind) Core[T] {
	capacity = roundToPowerOf2(capacity)

	switch kind {
	case KindSPSC:
		return newSPSC[T](capacity)
	case KindMPMC:
		return newMPMC[T](capacity)
	default:
		return nil
	}
}

func roundToPowerOf2(value uint32) uint32 {
	value--
	value |= value >> 1
	value |= value >> 2
	value |= value >> 4
	value |= value >> 8
	value |= value >> 16
	value++

	return value
}
