package writer

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/byteflow/pkg/buffer"
	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
)

// Stats holds counters describing a writer's traffic.
type Stats struct {
	// Appends is the number of successful Append calls.
	Appends int64

	// DirectWrites is the number of Append calls that bypassed the buffer.
	DirectWrites int64

	// BytesAppended is the total number of bytes handed to the destination.
	BytesAppended int64

	// Flushes is the number of successful Flush calls.
	Flushes int64

	// Position is the current logical position.
	Position Position
}

// Writer buffers writes in front of a Destination and tracks the absolute
// position of the next byte.
//
// The buffered window is buf.Data()[0:limit]; bytes [0:cursor) are written
// but not yet appended, and startPos is the position of byte 0. The window
// never extends past MaxPosition.
//
// Any destination failure or position overflow is terminal: the writer
// keeps the annotated error, stops calling the destination and returns the
// error from every later call. A Writer is not safe for concurrent use.
type Writer[D Destination] struct {
	dest   D
	config Config
	log    logrus.FieldLogger
	name   string

	buf      *buffer.Buffer
	cursor   int
	limit    int
	startPos Position

	err    error
	closed bool
	stats  Stats
}

// New creates a Writer appending to dest at its current position.
//
// Failure to query the position, or a Name failure other than
// errors.ErrUnsupported, leaves the writer failed; check Err.
func New[D Destination](dest D, config Config) *Writer[D] {
	w := newWriter[D](config)
	w.dest = dest
	w.initializeName()
	if w.err == nil {
		w.initializePos()
	}
	return w
}

// Open opens path through provider, creating it or appending to it, and
// returns a Writer over it. An open failure leaves the writer failed with
// an error annotated with path.
func Open(provider Provider, path string, config Config) *Writer[Destination] {
	dest, err := provider.OpenAppendable(path)
	if err != nil {
		w := newWriter[Destination](config)
		w.name = path
		w.failOperation(err, "OpenAppendable")
		return w
	}
	w := New[Destination](dest, config)
	if w.name == "" {
		w.name = path
	}
	return w
}

func newWriter[D Destination](config Config) *Writer[D] {
	config = config.withDefaults()
	return &Writer[D]{
		config: config,
		log:    config.Logger,
		buf:    &buffer.Buffer{},
	}
}

func (w *Writer[D]) initializeName() {
	name, err := w.dest.Name()
	if err != nil {
		if !bferrors.IsUnsupported(err) {
			w.failOperation(err, "Name")
		}
		return
	}
	w.name = name
}

func (w *Writer[D]) initializePos() {
	pos, err := w.dest.Tell()
	if err != nil {
		w.failOperation(err, "Tell")
		return
	}
	w.startPos = pos
	w.stats.Position = pos
}

// Dest returns the destination.
func (w *Writer[D]) Dest() D {
	return w.dest
}

// Name returns the destination's identifying string, or "" if unknown.
func (w *Writer[D]) Name() string {
	return w.name
}

// Pos returns the position of the next byte to be written.
func (w *Writer[D]) Pos() Position {
	return w.startPos + Position(w.cursor)
}

// Healthy reports whether the writer is open and has not failed.
func (w *Writer[D]) Healthy() bool {
	return w.err == nil && !w.closed
}

// Err returns the terminal failure, or nil.
func (w *Writer[D]) Err() error {
	return w.err
}

// Buffered returns the number of bytes written but not yet appended.
func (w *Writer[D]) Buffered() int {
	return w.cursor
}

// Stats returns a snapshot of the writer's counters.
func (w *Writer[D]) Stats() Stats {
	s := w.stats
	s.Position = w.Pos()
	return s
}

// Available returns the writable room of the buffer. Bytes placed there
// become part of the stream once committed with Move.
func (w *Writer[D]) Available() []byte {
	return w.buf.Data()[w.cursor:w.limit]
}

// Move commits n bytes written into Available.
func (w *Writer[D]) Move(n int) {
	if n < 0 || n > w.limit-w.cursor {
		panic(fmt.Sprintf("Failed precondition of Writer.Move(): %d bytes, %d available", n, w.limit-w.cursor))
	}
	w.cursor += n
}

// Push makes sure at least one byte of room is available.
func (w *Writer[D]) Push() error {
	if w.cursor < w.limit {
		return nil
	}
	return w.pushSlow()
}

// Write writes p, buffering it or appending it directly. It implements
// io.Writer; on failure it reports 0 bytes written.
func (w *Writer[D]) Write(p []byte) (int, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	if len(p) <= w.limit-w.cursor {
		w.cursor += copy(w.buf.Data()[w.cursor:], p)
		return len(p), nil
	}
	if err := w.writeSlow(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString writes s.
func (w *Writer[D]) WriteString(s string) (int, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	if len(s) <= w.limit-w.cursor {
		w.cursor += copy(w.buf.Data()[w.cursor:], s)
		return len(s), nil
	}
	return w.Write([]byte(s))
}

// WriteByte writes c.
func (w *Writer[D]) WriteByte(c byte) error {
	if err := w.Push(); err != nil {
		return err
	}
	w.buf.Data()[w.cursor] = c
	w.cursor++
	return nil
}

// Flush appends buffered bytes and then pushes them as far as ft asks.
// A flush with nothing buffered on a healthy destination issues no Append.
func (w *Writer[D]) Flush(ft FlushType) error {
	if err := w.pushInternal(); err != nil {
		return err
	}
	switch ft {
	case FlushFromObject:
	case FlushFromProcess:
		if err := w.dest.Flush(); err != nil {
			return w.failOperation(err, "Flush")
		}
	case FlushFromMachine:
		if err := w.dest.Sync(); err != nil {
			return w.failOperation(err, "Sync")
		}
	default:
		panic(fmt.Sprintf("Unknown flush type: %d", int(ft)))
	}
	w.stats.Flushes++
	if m := w.config.Metrics; m != nil {
		m.WriterFlushes.WithLabelValues(w.metricsName(), ft.String()).Inc()
	}
	w.log.WithFields(logrus.Fields{
		"destination": w.name,
		"level":       ft.String(),
		"position":    w.startPos,
	}).Debug("writer flushed")
	return nil
}

// Close appends buffered bytes and closes the destination if it implements
// io.Closer, unless Config.KeepDestinationOpen is set. Later calls fail with
// errors.ErrClosed, or with the earlier failure if there was one. Close is
// idempotent.
func (w *Writer[D]) Close() error {
	if w.closed {
		return w.err
	}
	err := w.pushInternal()
	w.closed = true
	w.limit = w.cursor
	if w.config.KeepDestinationOpen {
		return err
	}
	if c, ok := any(w.dest).(io.Closer); ok && c != nil {
		if cerr := c.Close(); cerr != nil && w.err == nil {
			return w.failOperation(cerr, "Close")
		}
	}
	return err
}

// check returns the error every call must fail with, if any.
func (w *Writer[D]) check() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return bferrors.ErrClosed
	}
	return nil
}

func (w *Writer[D]) pushSlow() error {
	if w.cursor < w.limit {
		panic("Failed precondition of Writer.pushSlow(): space available, use Push() instead")
	}
	if err := w.pushInternal(); err != nil {
		return err
	}
	if w.startPos == MaxPosition {
		return w.failOverflow()
	}
	w.buf.Reset(w.config.BufferSize)
	w.cursor = 0
	w.limit = w.clampLimit(w.config.BufferSize)
	return nil
}

// clampLimit bounds a window length so that startPos+limit <= MaxPosition.
func (w *Writer[D]) clampLimit(limit int) int {
	if room := MaxPosition - w.startPos; Position(limit) > room {
		return int(room)
	}
	return limit
}

func (w *Writer[D]) writeSlow(p []byte) error {
	if len(p) <= w.limit-w.cursor {
		panic("Failed precondition of Writer.writeSlow(): length too small, use Write() instead")
	}
	if len(p) >= w.lengthToWriteDirectly() {
		if err := w.pushInternal(); err != nil {
			return err
		}
		w.stats.DirectWrites++
		if m := w.config.Metrics; m != nil {
			m.WriterDirectWrites.WithLabelValues(w.metricsName()).Inc()
		}
		return w.writeInternal(p)
	}

	for len(p) > w.limit-w.cursor {
		n := copy(w.buf.Data()[w.cursor:w.limit], p)
		w.cursor += n
		p = p[n:]
		if err := w.pushSlow(); err != nil {
			return err
		}
	}
	w.cursor += copy(w.buf.Data()[w.cursor:], p)
	return nil
}

// lengthToWriteDirectly is the write length at which copying into the
// buffer stops paying off.
func (w *Writer[D]) lengthToWriteDirectly() int {
	length := w.config.BufferSize
	if w.cursor > 0 {
		length = saturatingAdd(length, w.cursor)
	}
	return length
}

func (w *Writer[D]) pushInternal() error {
	if err := w.check(); err != nil {
		return err
	}
	buffered := w.cursor
	if buffered == 0 {
		return nil
	}
	w.cursor = 0
	return w.writeInternal(w.buf.Data()[:buffered])
}

func (w *Writer[D]) writeInternal(p []byte) error {
	if len(p) == 0 {
		panic("Failed precondition of Writer.writeInternal(): nothing to write")
	}
	if w.err != nil {
		panic(fmt.Sprintf("Failed precondition of Writer.writeInternal(): %v", w.err))
	}
	if w.cursor != 0 {
		panic("Failed precondition of Writer.writeInternal(): buffer not empty")
	}
	if Position(len(p)) > MaxPosition-w.startPos {
		return w.failOverflow()
	}
	if err := w.dest.Append(p); err != nil {
		return w.failOperation(err, "Append")
	}
	w.startPos += Position(len(p))
	w.limit = w.clampLimit(w.limit)

	w.stats.Appends++
	w.stats.BytesAppended += int64(len(p))
	if m := w.config.Metrics; m != nil {
		name := w.metricsName()
		m.WriterAppends.WithLabelValues(name).Inc()
		m.WriterBytesWritten.WithLabelValues(name).Add(float64(len(p)))
		m.WriterPosition.WithLabelValues(name).Set(float64(w.startPos))
	}
	return nil
}

// failOperation records cause, annotated with the failing primitive and the
// destination name, as the terminal error.
func (w *Writer[D]) failOperation(cause error, operation string) error {
	err := bferrors.NewOperationError("Destination", operation, cause)
	if w.name != "" {
		err.WithContext("writing " + w.name)
	}
	return w.fail(err, operation)
}

func (w *Writer[D]) failOverflow() error {
	err := bferrors.NewOperationError("Writer", "Write", bferrors.ErrPositionOverflow)
	if w.name != "" {
		err.WithContext("writing " + w.name)
	}
	return w.fail(err, "Overflow")
}

func (w *Writer[D]) fail(err error, operation string) error {
	w.err = err
	w.limit = w.cursor

	if m := w.config.Metrics; m != nil {
		m.WriterFailures.WithLabelValues(w.metricsName(), operation).Inc()
	}
	w.log.WithFields(logrus.Fields{
		"destination": w.name,
		"operation":   operation,
		"position":    w.Pos(),
	}).WithError(err).Error("writer failed")
	return err
}

func (w *Writer[D]) metricsName() string {
	if w.config.MetricsName != "" {
		return w.config.MetricsName
	}
	if w.name != "" {
		return w.name
	}
	return "unnamed"
}
