// Package buffer provides Buffer, an owned memory block that can later be
// handed to a cord.Cord by copying or by transferring ownership.
package buffer

import (
	"fmt"

	"github.com/vnykmshr/byteflow/pkg/cord"
	"github.com/vnykmshr/byteflow/pkg/metrics"
)

// MinWaste is the slack below which a buffer is never considered wasteful,
// however small the payload.
const MinWaste = 256

// Conversion modes reported to metrics.
const (
	ModeInline = "inline"
	ModeFlat   = "flat"
	ModeCopy   = "copy"
	ModeMove   = "move"
)

// Buffer owns one heap block. It tracks the capacity of the block and how
// much of it is logically in use. The zero value has no block.
type Buffer struct {
	data    []byte
	size    int
	metrics *metrics.Registry
}

// New allocates a Buffer with the given capacity.
func New(capacity int) *Buffer {
	b := &Buffer{}
	b.Reset(capacity)
	return b
}

// Instrument records conversions in reg. A nil reg disables recording.
func (b *Buffer) Instrument(reg *metrics.Registry) {
	b.metrics = reg
}

// Data returns the whole block, Capacity bytes long. Writes through the
// returned slice modify the buffer.
func (b *Buffer) Data() []byte {
	return b.data
}

// Capacity returns the size of the block.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Size returns how many bytes from the start of the block are in use.
func (b *Buffer) Size() int {
	return b.size
}

// SetSize marks the first n bytes of the block as in use.
func (b *Buffer) SetSize(n int) {
	if n < 0 || n > len(b.data) {
		panic(fmt.Sprintf("Failed precondition of Buffer.SetSize(): size %d outside [0, %d]", n, len(b.data)))
	}
	b.size = n
}

// Bytes returns the in-use prefix of the block.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.size]
}

// Reset empties the buffer and makes sure the block holds at least capacity
// bytes, allocating a new block only when the current one is too small.
func (b *Buffer) Reset(capacity int) {
	if capacity < 0 {
		panic(fmt.Sprintf("Failed precondition of Buffer.Reset(): negative capacity %d", capacity))
	}
	if len(b.data) < capacity {
		b.data = make([]byte, capacity)
	}
	b.size = 0
}

// ToCord consumes the buffer and returns a Cord equal to Data()[start:end].
//
// Short payloads, and payloads that would keep a much larger block alive,
// are copied; the Buffer keeps its block and is emptied for reuse.
// Otherwise the block itself is moved into the Cord and released when the
// last reference to it is gone, leaving the Buffer without a block; callers
// must Reset it before buffering again.
//
// ToCord panics unless 0 <= start <= end <= Capacity().
func (b *Buffer) ToCord(start, end int) cord.Cord {
	if start < 0 || start > end || end > len(b.data) {
		panic(fmt.Sprintf("Failed precondition of Buffer.ToCord(): substring [%d, %d) not contained in the buffer of capacity %d",
			start, end, len(b.data)))
	}
	substr := b.data[start:end]
	n := len(substr)

	if n <= cord.MaxInline || Wasteful(len(b.data), n) {
		b.size = 0
		if n <= cord.MaxFlatSize {
			mode := ModeFlat
			if n <= cord.MaxInline {
				mode = ModeInline
			}
			b.observe(mode, n)
			return cord.FromBytes(substr)
		}
		// A plain copy would be split into several nodes, so copy once into
		// an exactly sized block and attach that instead.
		exact := New(n)
		copy(exact.data, substr)
		b.observe(ModeCopy, n)
		return cord.FromExternal(exact.data, exact.release)
	}

	moved := &Buffer{data: b.data, size: b.size}
	b.release()
	b.observe(ModeMove, 0)
	return cord.FromExternal(substr, moved.release)
}

// release drops the block.
func (b *Buffer) release() {
	b.data = nil
	b.size = 0
}

func (b *Buffer) observe(mode string, copied int) {
	if b.metrics == nil {
		return
	}
	b.metrics.BufferConversions.WithLabelValues(mode).Inc()
	if copied > 0 {
		b.metrics.BufferCopiedBytes.Add(float64(copied))
	}
}

// Wasteful reports whether a block of capacity bytes is disproportionately
// large for used bytes of payload.
func Wasteful(capacity, used int) bool {
	slack := capacity - used
	if used > MinWaste {
		return slack > used
	}
	return slack > MinWaste
}
