package writer

import (
	"math"
)

// Position is an absolute byte offset in a destination.
type Position = uint64

// MaxPosition is the largest representable Position.
const MaxPosition Position = math.MaxUint64

// Destination is the storage backend a Writer appends to.
//
// Errors may carry a category through errors.Status; the Writer only
// distinguishes success from failure, except for Name where an error
// matching errors.ErrUnsupported means the destination has no name.
type Destination interface {
	// Append writes p at the end of the destination. p must not be retained.
	Append(p []byte) error

	// Flush makes appended bytes visible to other processes on this machine.
	Flush() error

	// Sync makes appended bytes durable across crashes and restarts.
	Sync() error

	// Tell returns the current end position.
	Tell() (Position, error)

	// Name returns an identifying string used to annotate failures.
	Name() (string, error)
}

// Provider opens destinations by path.
type Provider interface {
	// OpenAppendable opens path for appending, creating it if missing.
	OpenAppendable(path string) (Destination, error)
}

// FlushType selects how far buffered data is pushed by Flush.
type FlushType int

const (
	// FlushFromObject makes data visible to other users of the destination
	// object within this process.
	FlushFromObject FlushType = iota

	// FlushFromProcess makes data visible to other processes on this machine.
	FlushFromProcess

	// FlushFromMachine makes data durable across machine crashes and restarts.
	FlushFromMachine
)

func (ft FlushType) String() string {
	switch ft {
	case FlushFromObject:
		return "object"
	case FlushFromProcess:
		return "process"
	case FlushFromMachine:
		return "machine"
	default:
		return "unknown"
	}
}

func saturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
