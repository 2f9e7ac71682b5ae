package flush

import (
	"bufio"
	"context"
	"os"

	"github.com/FerroO2000/anello/internal/config"
)

//////////////
//  CONFIG  //
//////////////

// DefaultFileConfigBufferSize is the default size of the write buffer.
const DefaultFileConfigBufferSize = 4096

// FileConfig contains the configuration for the [FileSink].
type FileConfig struct {
	// Path is the path to the file. The file is created if missing
	// and appended to otherwise.
	Path string

	// BufferSize is the size of the write buffer.
	BufferSize int
}

// DefaultFileConfig returns the default configuration for the [FileSink].
func DefaultFileConfig(path string) *FileConfig {
	return &FileConfig{
		Path:       path,
		BufferSize: DefaultFileConfigBufferSize,
	}
}

// Validate checks the configuration.
func (c *FileConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "BufferSize", &c.BufferSize, DefaultFileConfigBufferSize)
	config.CheckNotZero(ac, "BufferSize", &c.BufferSize, DefaultFileConfigBufferSize)
}

////////////
//  SINK  //
////////////

var _ Sink[[]byte] = (*FileSink)(nil)

// FileSink appends drained batches of byte chunks to a file. The write
// buffer is flushed once per batch.
type FileSink struct {
	cfg *FileConfig

	file   *os.File
	writer *bufio.Writer
}

// NewFileSink returns a new [FileSink].
func NewFileSink(cfg *FileConfig) *FileSink {
	return &FileSink{
		cfg: cfg,
	}
}

func (fs *FileSink) sinkConfig() config.Config {
	return fs.cfg
}

// Init opens the file.
func (fs *FileSink) Init(_ context.Context) error {
	file, err := os.OpenFile(fs.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	fs.file = file
	fs.writer = bufio.NewWriterSize(file, fs.cfg.BufferSize)

	return nil
}

// Flush writes the batch and flushes the write buffer.
func (fs *FileSink) Flush(_ context.Context, batch [][]byte) error {
	for _, chunk := range batch {
		if _, err := fs.writer.Write(chunk); err != nil {
			return err
		}
	}

	return fs.writer.Flush()
}

// Close flushes the write buffer and closes the file.
func (fs *FileSink) Close(_ context.Context) error {
	if err := fs.writer.Flush(); err != nil {
		fs.file.Close()
		return err
	}

	return fs.file.Close()
}
