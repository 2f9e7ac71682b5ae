package flush

import (
	"context"
	"time"

	"github.com/FerroO2000/anello/internal/config"
	"github.com/segmentio/kafka-go"
)

//////////////
//  CONFIG  //
//////////////

// DefaultKafkaConfigBrokers is the default list of Kafka brokers to connect to.
var DefaultKafkaConfigBrokers = []string{"localhost:9092"}

// Default values for the Kafka sink configuration.
const (
	DefaultKafkaConfigMaxAttempts  = 10
	DefaultKafkaConfigBatchTimeout = time.Second
	DefaultKafkaConfigWriteTimeout = 10 * time.Second
)

// KafkaConfig contains the configuration for the [KafkaSink].
type KafkaConfig struct {
	// Brokers is the list of Kafka brokers to connect to.
	Brokers []string

	// Topic is the topic the sink writes to.
	Topic string

	// Balancer distributes messages across partitions.
	//
	// Default: RoundRobin.
	Balancer kafka.Balancer

	// MaxAttempts limits how many attempts will be made to deliver a message.
	MaxAttempts int

	// BatchTimeout is the time limit on how often incomplete message
	// batches will be flushed to Kafka.
	BatchTimeout time.Duration

	// WriteTimeout is the timeout for write operations.
	WriteTimeout time.Duration

	// RequiredAcks is the number of acknowledgements from partition
	// replicas required before receiving a response to a produce request.
	RequiredAcks kafka.RequiredAcks

	// Compression is the codec used to compress messages.
	Compression kafka.Compression

	// AllowAutoTopicCreation notifies the writer to create the topic if missing.
	AllowAutoTopicCreation bool
}

// DefaultKafkaConfig returns the default configuration for the [KafkaSink].
func DefaultKafkaConfig(topic string) *KafkaConfig {
	return &KafkaConfig{
		Brokers: DefaultKafkaConfigBrokers,
		Topic:   topic,

		Balancer:               &kafka.RoundRobin{},
		MaxAttempts:            DefaultKafkaConfigMaxAttempts,
		BatchTimeout:           DefaultKafkaConfigBatchTimeout,
		WriteTimeout:           DefaultKafkaConfigWriteTimeout,
		RequiredAcks:           kafka.RequireNone,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

// Validate checks the configuration.
func (c *KafkaConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckLen(ac, "Brokers", &c.Brokers, DefaultKafkaConfigBrokers)

	config.CheckNotNegative(ac, "MaxAttempts", &c.MaxAttempts, DefaultKafkaConfigMaxAttempts)
	config.CheckNotNegative(ac, "BatchTimeout", &c.BatchTimeout, DefaultKafkaConfigBatchTimeout)
	config.CheckNotNegative(ac, "WriteTimeout", &c.WriteTimeout, DefaultKafkaConfigWriteTimeout)
}

////////////
//  SINK  //
////////////

var _ Sink[kafka.Message] = (*KafkaSink)(nil)

// KafkaSink delivers drained batches to a Kafka topic. The whole batch
// is handed to the writer in a single call, so the drain-everything
// read of the buffer maps directly onto the writer batching.
type KafkaSink struct {
	cfg *KafkaConfig

	writer *kafka.Writer
}

// NewKafkaSink returns a new [KafkaSink].
func NewKafkaSink(cfg *KafkaConfig) *KafkaSink {
	return &KafkaSink{
		cfg: cfg,
	}
}

func (ks *KafkaSink) sinkConfig() config.Config {
	return ks.cfg
}

// Init creates the Kafka writer.
func (ks *KafkaSink) Init(_ context.Context) error {
	ks.writer = &kafka.Writer{
		Addr:                   kafka.TCP(ks.cfg.Brokers...),
		Topic:                  ks.cfg.Topic,
		Balancer:               ks.cfg.Balancer,
		MaxAttempts:            ks.cfg.MaxAttempts,
		BatchTimeout:           ks.cfg.BatchTimeout,
		WriteTimeout:           ks.cfg.WriteTimeout,
		RequiredAcks:           ks.cfg.RequiredAcks,
		Compression:            ks.cfg.Compression,
		AllowAutoTopicCreation: ks.cfg.AllowAutoTopicCreation,
	}

	return nil
}

// Flush writes the batch to Kafka.
func (ks *KafkaSink) Flush(ctx context.Context, batch []kafka.Message) error {
	return ks.writer.WriteMessages(ctx, batch...)
}

// Close closes the underlying writer.
func (ks *KafkaSink) Close(_ context.Context) error {
	return ks.writer.Close()
}
