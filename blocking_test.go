package anello

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_BlockingBuffer(t *testing.T) {
	const (
		capacity   = 1024
		totalItems = 100_000
	)

	suite := []struct {
		kind             Kind
		prodNum, consNum int
	}{
		{KindSPSC, 1, 1},
		{KindMPMC, 1, 1},
		{KindMPMC, 1, 4},
		{KindMPMC, 4, 1},
		{KindMPMC, 8, 8},
	}

	for _, tCase := range suite {
		tName := fmt.Sprintf("%s-P%d-C%d", tCase.kind, tCase.prodNum, tCase.consNum)

		t.Run(tName, func(t *testing.T) {
			testBlockingBuffer(t, tCase.kind, capacity, tCase.prodNum, tCase.consNum, totalItems)
		})
	}
}

func testBlockingBuffer(t *testing.T, kind Kind, capacity uint32, prodNum, consNum, totalItems int) {
	assert := assert.New(t)

	itemsPerProd := totalItems / prodNum

	buf := NewBlockingBuffer[int](capacity, kind)

	var receivedItems sync.Map
	var receivedCount atomic.Uint64

	var producerWg sync.WaitGroup
	var consumerWg sync.WaitGroup

	consumerWg.Add(consNum)
	for range consNum {
		go func() {
			defer consumerWg.Done()

			// Each consumer reads until the buffer is closed
			for {
				item, err := buf.Read(t.Context())
				if err != nil {
					assert.ErrorIs(err, ErrClosed)
					return
				}

				receivedItems.Store(item, true)
				receivedCount.Add(1)
			}
		}()
	}

	producerWg.Add(prodNum)
	for i := range prodNum {
		go func(producerID int) {
			defer producerWg.Done()

			base := producerID * itemsPerProd
			for j := range itemsPerProd {
				err := buf.Write(base + j)
				assert.NoError(err)
				if err != nil {
					return
				}
			}
		}(i)
	}

	producerWg.Wait()

	buf.Close()

	consumerWg.Wait()

	assert.Equal(uint64(totalItems), receivedCount.Load())

	missingItems := 0
	for i := range totalItems {
		if _, ok := receivedItems.Load(i); !ok {
			missingItems++
		}
	}
	assert.Zero(missingItems)
}

func Test_BlockingBuffer_ReadCancel(t *testing.T) {
	assert := assert.New(t)

	buf := NewBlockingBuffer[int](4, KindSPSC)

	ctx, cancelCtx := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancelCtx()

	// No producer: the read must give up when the context expires
	_, err := buf.Read(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
}

func Test_BlockingBuffer_Close(t *testing.T) {
	assert := assert.New(t)

	buf := NewBlockingBuffer[int](4, KindMPMC)

	assert.NoError(buf.Write(42))

	buf.Close()

	// Writing after close fails
	assert.ErrorIs(buf.Write(43), ErrClosed)

	// Closing twice is a no-op
	buf.Close()
}

func Benchmark_BlockingBuffer(b *testing.B) {
	b.ReportAllocs()

	kinds := []Kind{KindSPSC, KindMPMC}
	for _, kind := range kinds {
		b.Run("WriteReadSteady-"+kind.String(), func(b *testing.B) {
			buf := NewBlockingBuffer[int](1024, kind)

			val := 0
			for b.Loop() {
				if err := buf.Write(val); err != nil {
					b.Fatal(err)
				}

				if _, err := buf.Read(b.Context()); err != nil {
					b.Fatal(err)
				}

				val++
			}
		})
	}
}
