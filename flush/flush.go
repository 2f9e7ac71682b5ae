// Package flush contains batch consumers that periodically drain a
// buffer into a sink.
package flush

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/anello"
	"github.com/FerroO2000/anello/internal"
	"github.com/FerroO2000/anello/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Source is the buffer side of a [Flusher]. It is satisfied by
// [anello.Buffer] and [anello.MeteredBuffer].
type Source[T any] interface {
	// CanRead states whether the source holds at least one element.
	CanRead() bool
	// Read drains the source, oldest element first.
	Read() ([]T, error)
}

// Sink receives the batches drained from a [Source].
type Sink[T any] interface {
	// Init prepares the sink.
	Init(ctx context.Context) error
	// Flush delivers one drained batch.
	Flush(ctx context.Context, batch []T) error
	// Close releases the sink resources.
	Close(ctx context.Context) error
}

// configurable is implemented by the sinks of this package so the
// flusher can validate their configuration before initializing them.
type configurable interface {
	sinkConfig() config.Config
}

//////////////
//  CONFIG  //
//////////////

// DefaultInterval is the default drain period of a [Flusher].
const DefaultInterval = 100 * time.Millisecond

// Config contains the configuration for a [Flusher].
type Config struct {
	// Interval is the period between two drain attempts.
	Interval time.Duration
}

// DefaultConfig returns the default configuration for a [Flusher].
func DefaultConfig() *Config {
	return &Config{
		Interval: DefaultInterval,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "Interval", &c.Interval, DefaultInterval)
	config.CheckNotZero(ac, "Interval", &c.Interval, DefaultInterval)
}

///////////////
//  FLUSHER  //
///////////////

// Flusher periodically drains a [Source] and hands each batch to a
// [Sink]. A drain only happens when the source has elements, so idle
// ticks are cheap.
type Flusher[T any] struct {
	tel *internal.Telemetry

	source Source[T]
	sink   Sink[T]

	cfg *Config

	// Metrics
	flushedItems   atomic.Int64
	flushedBatches atomic.Int64
	flushErrors    atomic.Int64

	flushDuration metric.Float64Histogram
}

// New returns a new [Flusher] with the given name draining the source
// into the sink.
func New[T any](name string, source Source[T], sink Sink[T], cfg *Config) *Flusher[T] {
	return &Flusher[T]{
		tel: internal.NewTelemetry("flusher", name),

		source: source,
		sink:   sink,

		cfg: cfg,
	}
}

func (f *Flusher[T]) initMetrics() {
	f.tel.NewCounter("flushed_items", func() int64 { return f.flushedItems.Load() })
	f.tel.NewCounter("flushed_batches", func() int64 { return f.flushedBatches.Load() })
	f.tel.NewCounter("flush_errors", func() int64 { return f.flushErrors.Load() })

	f.flushDuration = f.tel.NewHistogram("flush_duration", metric.WithUnit("ms"))
}

// Init validates the configuration and initializes the sink.
func (f *Flusher[T]) Init(ctx context.Context) error {
	f.tel.LogInfo("initializing")

	config.NewValidator(f.tel).Validate(f.cfg)

	if s, ok := f.sink.(configurable); ok {
		config.NewValidator(f.tel).Validate(s.sinkConfig())
	}

	if err := f.sink.Init(ctx); err != nil {
		return err
	}

	f.initMetrics()

	return nil
}

// Run drains the source on every tick until the context is done.
func (f *Flusher[T]) Run(ctx context.Context) {
	f.tel.LogInfo("running")

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Deliver what is still buffered before stopping
			f.flush(context.Background())
			return

		case <-ticker.C:
			f.flush(ctx)
		}
	}
}

func (f *Flusher[T]) flush(ctx context.Context) {
	if !f.source.CanRead() {
		return
	}

	batch, err := f.source.Read()
	if err != nil {
		// A concurrent reader may have drained the source first
		if errors.Is(err, anello.ErrNothingToRead) {
			return
		}

		f.tel.LogError("failed to read from source", err)
		return
	}

	ctx, span := f.tel.NewTrace(ctx, "flush batch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", len(batch)))

	start := time.Now()

	if err := f.sink.Flush(ctx, batch); err != nil {
		f.flushErrors.Add(1)
		f.tel.LogError("failed to flush batch", err, "batch_size", len(batch))
		return
	}

	f.flushDuration.Record(ctx, float64(time.Since(start).Milliseconds()))

	f.flushedItems.Add(int64(len(batch)))
	f.flushedBatches.Add(1)
}

// Close closes the sink.
func (f *Flusher[T]) Close() {
	f.tel.LogInfo("closing")

	if err := f.sink.Close(context.Background()); err != nil {
		f.tel.LogError("failed to close sink", err)
	}
}
