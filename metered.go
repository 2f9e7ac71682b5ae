package anello

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/anello/internal"
)

// statsInterval is the period of the throughput log emitted by
// [MeteredBuffer.RunStats].
const statsInterval = time.Second

// MeteredBuffer is a [Buffer] that reports its activity through
// OpenTelemetry counters and the structured logger. The counters are
// observable: they cost one atomic add per operation and are only
// collected when a meter provider is installed.
type MeteredBuffer[T any] struct {
	*Buffer[T]

	tel *internal.Telemetry

	// Metrics
	writtenItems   atomic.Int64
	drainedItems   atomic.Int64
	partialWrites  atomic.Int64
	busyRejections atomic.Int64
	emptyReads     atomic.Int64

	// Per-interval counts for the stats log
	intervalWritten atomic.Int64
	intervalDrained atomic.Int64
}

// NewMeteredBuffer returns a new [MeteredBuffer] with the given name
// and slot count. The name tags every metric and log record.
func NewMeteredBuffer[T any](name string, capacity int) *MeteredBuffer[T] {
	mb := &MeteredBuffer[T]{
		Buffer: NewBuffer[T](capacity),

		tel: internal.NewTelemetry("buffer", name),
	}

	mb.initMetrics()

	return mb
}

func (mb *MeteredBuffer[T]) initMetrics() {
	mb.tel.NewCounter("written_items", func() int64 { return mb.writtenItems.Load() })
	mb.tel.NewCounter("drained_items", func() int64 { return mb.drainedItems.Load() })
	mb.tel.NewCounter("partial_writes", func() int64 { return mb.partialWrites.Load() })
	mb.tel.NewCounter("busy_rejections", func() int64 { return mb.busyRejections.Load() })
	mb.tel.NewCounter("empty_reads", func() int64 { return mb.emptyReads.Load() })
}

// Read drains the buffer. See [Buffer.Read].
func (mb *MeteredBuffer[T]) Read() ([]T, error) {
	items, err := mb.Buffer.Read()
	if err != nil {
		mb.emptyReads.Add(1)
		return nil, err
	}

	drained := int64(len(items))
	mb.drainedItems.Add(drained)
	mb.intervalDrained.Add(drained)

	return items, nil
}

// Write stores as many elements as possible. See [Buffer.Write].
func (mb *MeteredBuffer[T]) Write(items []T) (int, []T, error) {
	written, rest, err := mb.Buffer.Write(items)
	if err != nil {
		mb.busyRejections.Add(1)
		return written, rest, err
	}

	if len(rest) > 0 {
		mb.partialWrites.Add(1)
	}

	mb.writtenItems.Add(int64(written))
	mb.intervalWritten.Add(int64(written))

	return written, rest, nil
}

// RunStats periodically logs the buffer throughput until the context
// is done. Intervals without activity are skipped.
func (mb *MeteredBuffer[T]) RunStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			written := mb.intervalWritten.Swap(0)
			drained := mb.intervalDrained.Swap(0)

			if written == 0 && drained == 0 {
				continue
			}

			mb.tel.LogInfo("stats",
				"written_per_sec", written, "drained_per_sec", drained,
				"pending", mb.Len())
		}
	}
}
