package writer

import (
	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/byteflow/pkg/common/validation"
	"github.com/vnykmshr/byteflow/pkg/metrics"
)

// DefaultBufferSize is the buffer capacity used when none is configured.
const DefaultBufferSize = 64 * 1024

// Config holds configuration options for Writer.
type Config struct {
	// BufferSize is the capacity of the internal buffer in bytes. Writes at
	// least this long bypass the buffer.
	// Default: 64KB
	BufferSize int

	// KeepDestinationOpen leaves the destination open on Close even when it
	// implements io.Closer.
	KeepDestinationOpen bool

	// Logger receives failure reports and flush traces.
	// Default: logrus.StandardLogger()
	Logger logrus.FieldLogger

	// Metrics receives writer metrics. Nil disables metrics.
	Metrics *metrics.Registry

	// MetricsName is the writer_name label. Defaults to the destination name.
	MetricsName string
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize: DefaultBufferSize,
		Logger:     logrus.StandardLogger(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	return validation.ValidatePositive("writer", "BufferSize", c.BufferSize)
}

// withDefaults replaces unset or invalid fields with defaults.
func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultConfig().BufferSize
	}
	if c.Logger == nil {
		c.Logger = DefaultConfig().Logger
	}
	return c
}
