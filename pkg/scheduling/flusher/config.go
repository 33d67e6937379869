package flusher

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/metrics"
	"github.com/vnykmshr/byteflow/pkg/streaming/writer"
)

// DefaultSpec flushes once per second.
const DefaultSpec = "@every 1s"

// parser accepts an optional seconds field and descriptors such as @hourly.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds configuration options for Flusher.
type Config struct {
	// Spec is the cron expression driving scheduled flushes.
	// Supports "sec min hour dom month dow", the five-field form and
	// descriptors: "*/5 * * * * *", "@every 30s", "@hourly".
	// Default: "@every 1s"
	Spec string

	// Schedule overrides Spec when set.
	Schedule cron.Schedule

	// Level is how far each scheduled flush pushes data. DefaultConfig uses
	// writer.FlushFromProcess; the zero value is writer.FlushFromObject.
	Level writer.FlushType

	// Name labels log entries and metrics. Defaults to the writer name.
	Name string

	// OnError is called once, with the writer's terminal error, by the first
	// scheduled flush that fails.
	OnError func(err error)

	// Logger receives scheduling events.
	// Default: logrus.StandardLogger()
	Logger logrus.FieldLogger

	// Metrics receives flusher metrics. Nil disables metrics.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Spec:   DefaultSpec,
		Level:  writer.FlushFromProcess,
		Logger: logrus.StandardLogger(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Level {
	case writer.FlushFromObject, writer.FlushFromProcess, writer.FlushFromMachine:
	default:
		return bferrors.NewValidationError("flusher", "Level", int(c.Level), "unknown flush type")
	}
	if c.Schedule != nil {
		return nil
	}
	if c.Spec == "" {
		return bferrors.NewValidationError("flusher", "Spec", c.Spec, "must not be empty").
			WithHint("use a cron expression such as \"@every 1s\"")
	}
	if _, err := parser.Parse(c.Spec); err != nil {
		return bferrors.NewValidationError("flusher", "Spec", c.Spec, err.Error())
	}
	return nil
}

func (c Config) schedule() (cron.Schedule, error) {
	if c.Schedule != nil {
		return c.Schedule, nil
	}
	return parser.Parse(c.Spec)
}

func (c Config) withDefaults() Config {
	if c.Spec == "" && c.Schedule == nil {
		c.Spec = DefaultSpec
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
