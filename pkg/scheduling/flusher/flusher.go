package flusher

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/byteflow/pkg/streaming/writer"
)

// Flusher owns a Writer and flushes it on a cron schedule. Writes go through
// the Flusher, which serializes them with the scheduled flushes.
type Flusher[D writer.Destination] struct {
	mu     sync.Mutex
	w      *writer.Writer[D]
	config Config
	log    logrus.FieldLogger
	cron   *cron.Cron

	running   bool
	stopped   bool
	reported  bool
	runs      uint64
	failures  uint64
	lastError error
}

// Stats reports scheduled flush activity.
type Stats struct {
	Runs     uint64
	Failures uint64
	LastErr  error
}

// New creates a Flusher for w. The schedule does not run until Start.
func New[D writer.Destination](w *writer.Writer[D], config Config) (*Flusher[D], error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	schedule, err := config.schedule()
	if err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = w.Name()
	}

	f := &Flusher[D]{
		w:      w,
		config: config,
		log:    config.Logger.WithField("flusher", config.Name),
	}
	f.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cron.PrintfLogger(f.log)),
	)
	f.cron.Schedule(schedule, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(f.tick)))
	return f, nil
}

// Start begins scheduled flushing. Starting a running or stopped Flusher
// does nothing.
func (f *Flusher[D]) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running || f.stopped {
		return
	}
	f.running = true
	f.cron.Start()
}

// Stop ends scheduled flushing and waits for a flush in progress.
func (f *Flusher[D]) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.running = false
	f.mu.Unlock()

	<-f.cron.Stop().Done()
}

// Close stops the schedule and closes the writer.
func (f *Flusher[D]) Close() error {
	f.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.Close()
}

// Write writes p through the writer.
func (f *Flusher[D]) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.Write(p)
}

// WriteString writes s through the writer.
func (f *Flusher[D]) WriteString(s string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.WriteString(s)
}

// Flush flushes the writer now, independently of the schedule.
func (f *Flusher[D]) Flush(ft writer.FlushType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.Flush(ft)
}

// Do runs fn with exclusive access to the writer.
func (f *Flusher[D]) Do(fn func(w *writer.Writer[D]) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.w)
}

// Stats returns a snapshot of scheduled flush activity.
func (f *Flusher[D]) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{Runs: f.runs, Failures: f.failures, LastErr: f.lastError}
}

// tick runs one scheduled flush. A failed writer is not flushed again.
func (f *Flusher[D]) tick() {
	f.mu.Lock()
	if !f.w.Healthy() {
		f.mu.Unlock()
		return
	}
	f.runs++
	if m := f.config.Metrics; m != nil {
		m.FlusherRuns.WithLabelValues(f.config.Name).Inc()
	}
	err := f.w.Flush(f.config.Level)
	var onError func(error)
	if err != nil {
		f.failures++
		f.lastError = err
		if m := f.config.Metrics; m != nil {
			m.FlusherErrors.WithLabelValues(f.config.Name).Inc()
		}
		f.log.WithError(err).WithField("level", f.config.Level.String()).Warn("scheduled flush failed")
		if !f.reported {
			f.reported = true
			onError = f.config.OnError
		}
	}
	f.mu.Unlock()

	if onError != nil {
		onError(err)
	}
}
