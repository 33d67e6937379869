package writer

import (
	"fmt"

	"github.com/vnykmshr/byteflow/pkg/buffer"
	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/cord"
	"github.com/vnykmshr/byteflow/pkg/metrics"
)

// CordWriter buffers writes and hands each filled buffer to a cord.Cord.
// Well-utilized buffers are moved into the cord without copying, after
// which a replacement buffer is allocated for the next bytes.
type CordWriter struct {
	dest       *cord.Cord
	bufferSize int
	metrics    *metrics.Registry

	buf    *buffer.Buffer
	cursor int
	limit  int
	closed bool
}

// NewCordWriter creates a CordWriter appending to dest. A bufferSize <= 0
// selects DefaultBufferSize.
func NewCordWriter(dest *cord.Cord, bufferSize int) *CordWriter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &CordWriter{
		dest:       dest,
		bufferSize: bufferSize,
		buf:        &buffer.Buffer{},
	}
}

// Instrument records buffer conversions in reg.
func (cw *CordWriter) Instrument(reg *metrics.Registry) {
	cw.metrics = reg
	cw.buf.Instrument(reg)
}

// Pos returns the number of bytes written so far.
func (cw *CordWriter) Pos() Position {
	return Position(cw.dest.Len() + cw.cursor)
}

// Write implements io.Writer.
func (cw *CordWriter) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, bferrors.ErrClosed
	}
	if len(p) <= cw.limit-cw.cursor {
		cw.cursor += copy(cw.buf.Data()[cw.cursor:], p)
		return len(p), nil
	}
	if len(p) >= cw.bufferSize {
		cw.push()
		cw.dest.AppendBytes(p)
		return len(p), nil
	}
	written := len(p)
	for len(p) > cw.limit-cw.cursor {
		n := copy(cw.buf.Data()[cw.cursor:cw.limit], p)
		cw.cursor += n
		p = p[n:]
		cw.pushSlow()
	}
	cw.cursor += copy(cw.buf.Data()[cw.cursor:], p)
	return written, nil
}

// WriteString writes s.
func (cw *CordWriter) WriteString(s string) (int, error) {
	return cw.Write([]byte(s))
}

// Flush hands buffered bytes to the cord.
func (cw *CordWriter) Flush() error {
	if cw.closed {
		return bferrors.ErrClosed
	}
	cw.push()
	return nil
}

// Close flushes and stops accepting writes.
func (cw *CordWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.push()
	cw.closed = true
	cw.limit = cw.cursor
	return nil
}

func (cw *CordWriter) pushSlow() {
	if cw.cursor < cw.limit {
		panic(fmt.Sprintf("Failed precondition of CordWriter.pushSlow(): %d bytes available", cw.limit-cw.cursor))
	}
	cw.push()
	cw.buf.Reset(cw.bufferSize)
	cw.limit = cw.bufferSize
}

// push moves buffered bytes into the cord. If the buffer's block went with
// them the window collapses until pushSlow allocates a replacement.
func (cw *CordWriter) push() {
	if cw.cursor == 0 {
		return
	}
	c := cw.buf.ToCord(0, cw.cursor)
	cw.dest.Append(&c)
	cw.cursor = 0
	if cw.buf.Capacity() < cw.limit {
		cw.limit = 0
	}
}
