package flush

import (
	"context"
	"fmt"
	"time"

	"github.com/FerroO2000/anello/internal/config"
	qdb "github.com/questdb/go-questdb-client/v3"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the QuestDB sink configuration.
const (
	DefaultQuestDBConfigAddress      = "localhost:9000"
	DefaultQuestDBConfigRetryTimeout = time.Second
)

// QuestDBConfig contains the configuration for the [QuestDBSink].
type QuestDBConfig struct {
	// Address of the QuestDB server.
	Address string

	// RetryTimeout is how long the sender retries failed requests.
	RetryTimeout time.Duration
}

// DefaultQuestDBConfig returns the default configuration for the [QuestDBSink].
func DefaultQuestDBConfig() *QuestDBConfig {
	return &QuestDBConfig{
		Address:      DefaultQuestDBConfigAddress,
		RetryTimeout: DefaultQuestDBConfigRetryTimeout,
	}
}

// Validate checks the configuration.
func (c *QuestDBConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotEmpty(ac, "Address", &c.Address, DefaultQuestDBConfigAddress)

	config.CheckNotNegative(ac, "RetryTimeout", &c.RetryTimeout, DefaultQuestDBConfigRetryTimeout)
}

///////////
//  ROW  //
///////////

// Symbol is a QuestDB symbol column. Symbols must be written before
// any other column of the row.
type Symbol struct {
	Name  string
	Value string
}

// Column is a regular QuestDB column. The supported value types are
// bool, int64, float64, string and time.Time.
type Column struct {
	Name  string
	Value any
}

// Row is one QuestDB row buffered for insertion.
type Row struct {
	// Table is the target table.
	Table string

	// Symbols are the symbol columns of the row.
	Symbols []Symbol

	// Columns are the regular columns of the row.
	Columns []Column

	// At is the designated timestamp of the row. The zero value lets
	// the server assign one.
	At time.Time
}

////////////
//  SINK  //
////////////

var _ Sink[Row] = (*QuestDBSink)(nil)

// QuestDBSink inserts drained batches of rows into QuestDB over the
// ILP/HTTP line sender.
type QuestDBSink struct {
	cfg *QuestDBConfig

	sender qdb.LineSender
}

// NewQuestDBSink returns a new [QuestDBSink].
func NewQuestDBSink(cfg *QuestDBConfig) *QuestDBSink {
	return &QuestDBSink{
		cfg: cfg,
	}
}

func (qs *QuestDBSink) sinkConfig() config.Config {
	return qs.cfg
}

// Init creates the line sender.
func (qs *QuestDBSink) Init(ctx context.Context) error {
	sender, err := qdb.NewLineSender(ctx,
		qdb.WithAddress(qs.cfg.Address),
		qdb.WithHttp(),
		qdb.WithRetryTimeout(qs.cfg.RetryTimeout),
	)
	if err != nil {
		return err
	}
	qs.sender = sender

	return nil
}

// Flush inserts the batch of rows and flushes the sender.
func (qs *QuestDBSink) Flush(ctx context.Context, batch []Row) error {
	for _, row := range batch {
		query := qs.sender.Table(row.Table)

		for _, symbol := range row.Symbols {
			query.Symbol(symbol.Name, symbol.Value)
		}

		for _, col := range row.Columns {
			switch value := col.Value.(type) {
			case bool:
				query.BoolColumn(col.Name, value)
			case int64:
				query.Int64Column(col.Name, value)
			case float64:
				query.Float64Column(col.Name, value)
			case string:
				query.StringColumn(col.Name, value)
			case time.Time:
				query.TimestampColumn(col.Name, value)
			default:
				return fmt.Errorf("questdb sink: unsupported column type %T for column %q", col.Value, col.Name)
			}
		}

		if row.At.IsZero() {
			if err := query.AtNow(ctx); err != nil {
				return err
			}
			continue
		}

		if err := query.At(ctx, row.At); err != nil {
			return err
		}
	}

	return qs.sender.Flush(ctx)
}

// Close closes the line sender.
func (qs *QuestDBSink) Close(ctx context.Context) error {
	return qs.sender.Close(ctx)
}
