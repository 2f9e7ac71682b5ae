package anello

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewBuffer(t *testing.T) {
	assert := assert.New(t)

	assert.Panics(func() { NewBuffer[int](0) })
	assert.Panics(func() { NewBuffer[int](1) })
	assert.Panics(func() { NewBuffer[int](-5) })

	assert.NotPanics(func() { NewBuffer[int](2) })

	buf := NewDefaultBuffer[int]()
	assert.Equal(DefaultCapacity, buf.Cap())
	assert.Zero(buf.Len())
	assert.False(buf.CanRead())
	assert.True(buf.CanWrite())
}

func Test_Buffer_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	const capacity = 16

	buf := NewBuffer[int](capacity)

	// The buffer holds at most capacity-1 elements
	for count := 1; count < capacity; count++ {
		items := make([]int, 0, count)
		for val := range count {
			items = append(items, val)
		}

		written, rest, err := buf.Write(items)
		assert.NoError(err)
		assert.Equal(count, written)
		assert.Empty(rest)
		assert.Equal(count, buf.Len())

		drained, err := buf.Read()
		assert.NoError(err)
		assert.Equal(items, drained)

		assert.Zero(buf.Len())
		assert.False(buf.CanRead())
	}
}

func Test_Buffer_EmptyWrite(t *testing.T) {
	assert := assert.New(t)

	buf := NewBuffer[string](4)

	written, rest, err := buf.Write(nil)
	assert.NoError(err)
	assert.Zero(written)
	assert.Nil(rest)

	written, rest, err = buf.Write([]string{})
	assert.NoError(err)
	assert.Zero(written)
	assert.Nil(rest)

	assert.Zero(buf.Len())
	assert.False(buf.CanRead())
}

func Test_Buffer_PartialWrite(t *testing.T) {
	assert := assert.New(t)

	buf := NewBuffer[string](4)

	input := []string{"A", "B", "C", "D"}

	written, rest, err := buf.Write(input)
	assert.NoError(err)
	assert.Equal(3, written)
	assert.Equal([]string{"D"}, rest)

	// The input slice is never mutated
	assert.Equal([]string{"A", "B", "C", "D"}, input)

	assert.False(buf.CanWrite())

	drained, err := buf.Read()
	assert.NoError(err)
	assert.Equal([]string{"A", "B", "C"}, drained)
	assert.False(buf.CanRead())

	written, rest, err = buf.Write(rest)
	assert.NoError(err)
	assert.Equal(1, written)
	assert.Empty(rest)

	drained, err = buf.Read()
	assert.NoError(err)
	assert.Equal([]string{"D"}, drained)
}

func Test_Buffer_SingleSlot(t *testing.T) {
	assert := assert.New(t)

	// Capacity 2 leaves one usable slot
	buf := NewBuffer[string](2)

	written, _, err := buf.Write([]string{"X"})
	assert.NoError(err)
	assert.Equal(1, written)

	assert.False(buf.CanWrite())

	written, rest, err := buf.Write([]string{"Y"})
	assert.ErrorIs(err, ErrBufferBusy)
	assert.Zero(written)
	assert.Equal([]string{"Y"}, rest)

	drained, err := buf.Read()
	assert.NoError(err)
	assert.Equal([]string{"X"}, drained)

	_, err = buf.Read()
	assert.ErrorIs(err, ErrNothingToRead)
}

func Test_Buffer_DrainCompleteness(t *testing.T) {
	assert := assert.New(t)

	buf := NewBuffer[int](8)

	_, _, err := buf.Write([]int{1, 2, 3})
	assert.NoError(err)

	drained, err := buf.Read()
	assert.NoError(err)
	assert.Len(drained, 3)

	assert.False(buf.CanRead())

	_, err = buf.Read()
	assert.ErrorIs(err, ErrNothingToRead)

	// A new write makes the buffer readable again
	_, _, err = buf.Write([]int{4})
	assert.NoError(err)
	assert.True(buf.CanRead())
}

func Test_Buffer_CapacityInvariant(t *testing.T) {
	assert := assert.New(t)

	const capacity = 8

	buf := NewBuffer[int](capacity)

	items := make([]int, 2*capacity)
	for val := range items {
		items[val] = val
	}

	written, rest, err := buf.Write(items)
	assert.NoError(err)
	assert.Equal(capacity-1, written)
	assert.Len(rest, len(items)-capacity+1)
	assert.Equal(capacity-1, buf.Len())

	// Zero free slots left
	written, _, err = buf.Write(rest)
	assert.ErrorIs(err, ErrBufferBusy)
	assert.Zero(written)
	assert.Equal(capacity-1, buf.Len())
}

func Test_Buffer_Wraparound(t *testing.T) {
	assert := assert.New(t)

	const capacity = 5

	buf := NewBuffer[int](capacity)

	// Cursors wrap many times with batches that do not divide the
	// storage size evenly
	next := 0
	for range 1_000 {
		items := []int{next, next + 1, next + 2}
		written, rest, err := buf.Write(items)
		assert.NoError(err)
		assert.Equal(3, written)
		assert.Empty(rest)

		drained, err := buf.Read()
		assert.NoError(err)
		assert.Equal(items, drained)

		next += 3
	}
}

func Test_Buffer_Reset(t *testing.T) {
	assert := assert.New(t)

	buf := NewBuffer[int](4)

	_, _, err := buf.Write([]int{1, 2, 3})
	assert.NoError(err)
	assert.True(buf.CanRead())

	buf.Reset()

	assert.False(buf.CanRead())
	assert.True(buf.CanWrite())
	assert.Zero(buf.Len())

	_, err = buf.Read()
	assert.ErrorIs(err, ErrNothingToRead)
}

func Test_Buffer_FIFO(t *testing.T) {
	assert := assert.New(t)

	const items = 50_000

	buf := NewBuffer[int](64)

	var consumerWg sync.WaitGroup
	consumerWg.Add(1)

	// The consumer checks elements come out in write order
	go func() {
		defer consumerWg.Done()

		expected := 0
		for expected < items {
			if !buf.CanRead() {
				continue
			}

			drained, err := buf.Read()
			if err != nil {
				continue
			}

			for _, val := range drained {
				assert.Equal(expected, val)
				expected++
			}
		}
	}()

	pending := make([]int, items)
	for val := range pending {
		pending[val] = val
	}

	for len(pending) > 0 {
		_, rest, err := buf.Write(pending)
		if err != nil {
			// Buffer full, wait for the consumer
			continue
		}

		pending = rest
	}

	consumerWg.Wait()
}

func Test_Buffer_Concurrent(t *testing.T) {
	assert := assert.New(t)

	const (
		prodNum          = 4
		itemsPerProducer = 25_000
		items            = prodNum * itemsPerProducer
	)

	buf := NewBuffer[int](128)

	valueMap := &sync.Map{}
	for val := range items {
		valueMap.Store(val, true)
	}

	var producerWg sync.WaitGroup
	producerWg.Add(prodNum)

	for idx := range prodNum {
		go func(idx int) {
			defer producerWg.Done()

			baseVal := idx * itemsPerProducer
			pending := make([]int, itemsPerProducer)
			for val := range pending {
				pending[val] = baseVal + val
			}

			for len(pending) > 0 {
				_, rest, err := buf.Write(pending)
				if err != nil {
					continue
				}

				pending = rest
			}
		}(idx)
	}

	var totalConsumed atomic.Int64
	var consumerWg sync.WaitGroup
	consumerWg.Add(1)

	go func() {
		defer consumerWg.Done()

		for totalConsumed.Load() < items {
			drained, err := buf.Read()
			if err != nil {
				continue
			}

			for _, val := range drained {
				assert.True(valueMap.CompareAndSwap(val, true, false))
				totalConsumed.Add(1)
			}
		}
	}()

	producerWg.Wait()
	consumerWg.Wait()

	assert.Equal(int64(items), totalConsumed.Load())
	assert.False(buf.CanRead())
}

func Benchmark_Buffer(b *testing.B) {
	b.ReportAllocs()

	buf := NewBuffer[int](1024)
	batch := make([]int, 512)

	for b.Loop() {
		pending := batch
		for len(pending) > 0 {
			_, rest, err := buf.Write(pending)
			if err != nil {
				b.Fatal(err)
			}
			pending = rest

			if _, err := buf.Read(); err != nil {
				b.Fatal(err)
			}
		}
	}
}
