package cord

import (
	"bytes"
	"io"
	"sync/atomic"
)

const (
	// MaxInline is the largest payload that is always stored in a single
	// small node instead of referencing outside memory.
	MaxInline = 15

	// MaxFlatSize is the largest payload a single owned node holds; longer
	// copies are split across nodes.
	MaxFlatSize = 4096 - 13
)

// external is memory the cord does not own. release runs once, when the
// last Cord referencing it is released.
type external struct {
	refs    atomic.Int32
	release func()
}

func (e *external) ref() {
	e.refs.Add(1)
}

func (e *external) unref() {
	if e.refs.Add(-1) == 0 && e.release != nil {
		e.release()
	}
}

type node struct {
	data []byte
	ext  *external
}

// Cord is a byte string built from segments. Segment bytes never change
// once attached; a Cord only grows by appending segments. Segments may
// reference memory owned elsewhere, which stays alive until every Cord
// holding it has been released.
//
// The zero value is an empty Cord ready to use. A Cord is not safe for
// concurrent mutation, but Clones may be used from different goroutines.
type Cord struct {
	nodes []node
	size  int
}

// FromBytes returns a Cord holding a copy of p.
func FromBytes(p []byte) Cord {
	var c Cord
	c.AppendBytes(p)
	return c
}

// FromString returns a Cord holding a copy of s.
func FromString(s string) Cord {
	return FromBytes([]byte(s))
}

// FromExternal returns a Cord that references data without copying it.
// release runs when the last reference obtained from this Cord is released.
// If data is empty, release runs immediately.
func FromExternal(data []byte, release func()) Cord {
	if len(data) == 0 {
		if release != nil {
			release()
		}
		return Cord{}
	}
	ext := &external{release: release}
	ext.refs.Store(1)
	return Cord{
		nodes: []node{{data: data[:len(data):len(data)], ext: ext}},
		size:  len(data),
	}
}

// Len returns the number of bytes in the Cord.
func (c *Cord) Len() int {
	return c.size
}

// Empty reports whether the Cord holds no bytes.
func (c *Cord) Empty() bool {
	return c.size == 0
}

// NumSegments returns the number of segments.
func (c *Cord) NumSegments() int {
	return len(c.nodes)
}

// Segments returns read-only views of the segments in order. The views must
// not be modified or retained past Release.
func (c *Cord) Segments() [][]byte {
	out := make([][]byte, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.data
	}
	return out
}

// AppendBytes appends a copy of p.
func (c *Cord) AppendBytes(p []byte) {
	if len(p) == 0 {
		return
	}
	c.size += len(p)

	// Small tails merge into an owned last node so byte-at-a-time producers
	// do not create one node per call.
	if last := len(c.nodes) - 1; last >= 0 && c.nodes[last].ext == nil &&
		len(c.nodes[last].data)+len(p) <= MaxFlatSize {
		merged := make([]byte, 0, len(c.nodes[last].data)+len(p))
		merged = append(merged, c.nodes[last].data...)
		merged = append(merged, p...)
		c.nodes[last] = node{data: merged}
		return
	}

	for len(p) > 0 {
		n := len(p)
		if n > MaxFlatSize {
			n = MaxFlatSize
		}
		flat := make([]byte, n)
		copy(flat, p[:n])
		c.nodes = append(c.nodes, node{data: flat})
		p = p[n:]
	}
}

// AppendString appends a copy of s.
func (c *Cord) AppendString(s string) {
	c.AppendBytes([]byte(s))
}

// Append moves the contents of other to the end of c. The references held
// by other are transferred; other is left empty.
func (c *Cord) Append(other *Cord) {
	if other == c {
		clone := other.Clone()
		other = &clone
	}
	c.nodes = append(c.nodes, other.nodes...)
	c.size += other.size
	other.nodes = nil
	other.size = 0
}

// Clone returns an independent reference to the same bytes. Both the
// original and the clone must be released.
func (c *Cord) Clone() Cord {
	nodes := make([]node, len(c.nodes))
	copy(nodes, c.nodes)
	for _, n := range nodes {
		if n.ext != nil {
			n.ext.ref()
		}
	}
	return Cord{nodes: nodes, size: c.size}
}

// Release drops the references held by c and leaves it empty.
func (c *Cord) Release() {
	for _, n := range c.nodes {
		if n.ext != nil {
			n.ext.unref()
		}
	}
	c.nodes = nil
	c.size = 0
}

// Bytes returns a flattened copy of the contents.
func (c *Cord) Bytes() []byte {
	out := make([]byte, 0, c.size)
	for _, n := range c.nodes {
		out = append(out, n.data...)
	}
	return out
}

// String returns the contents as a string.
func (c *Cord) String() string {
	return string(c.Bytes())
}

// Equal reports whether c holds exactly p.
func (c *Cord) Equal(p []byte) bool {
	if c.size != len(p) {
		return false
	}
	for _, n := range c.nodes {
		if !bytes.Equal(n.data, p[:len(n.data)]) {
			return false
		}
		p = p[len(n.data):]
	}
	return true
}

// WriteTo writes every segment to w in order.
func (c *Cord) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, n := range c.nodes {
		written, err := w.Write(n.data)
		total += int64(written)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
