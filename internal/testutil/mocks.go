package testutil

import (
	"bytes"
	"sync"

	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
)

// Primitive names accepted by MockDestination.FailOn and Calls.
const (
	OpAppend = "Append"
	OpFlush  = "Flush"
	OpSync   = "Sync"
	OpTell   = "Tell"
	OpName   = "Name"
	OpClose  = "Close"
)

// MockDestination is an in-memory destination that records every call and
// can be told to fail any primitive. An empty name makes Name report
// ErrUnsupported, like a backend with no identifying string.
type MockDestination struct {
	mu sync.Mutex

	data     bytes.Buffer
	appends  [][]byte
	startPos uint64
	name     string

	calls     map[string]int
	failures  map[string]error
	appendNth int
	appendErr error
	closed    bool
}

// NewMockDestination creates a healthy MockDestination at position 0.
func NewMockDestination(name string) *MockDestination {
	return &MockDestination{
		name:     name,
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// Append records a copy of p.
func (md *MockDestination) Append(p []byte) error {
	md.mu.Lock()
	defer md.mu.Unlock()

	md.calls[OpAppend]++
	if err := md.failures[OpAppend]; err != nil {
		return err
	}
	if md.appendNth > 0 && md.calls[OpAppend] == md.appendNth {
		return md.appendErr
	}

	md.appends = append(md.appends, append([]byte(nil), p...))
	md.data.Write(p)
	return nil
}

// Flush records the call.
func (md *MockDestination) Flush() error {
	return md.record(OpFlush)
}

// Sync records the call.
func (md *MockDestination) Sync() error {
	return md.record(OpSync)
}

// Tell reports the starting position plus every appended byte.
func (md *MockDestination) Tell() (uint64, error) {
	md.mu.Lock()
	defer md.mu.Unlock()

	md.calls[OpTell]++
	if err := md.failures[OpTell]; err != nil {
		return 0, err
	}
	return md.startPos + uint64(md.data.Len()), nil
}

// Name reports the configured name or ErrUnsupported.
func (md *MockDestination) Name() (string, error) {
	md.mu.Lock()
	defer md.mu.Unlock()

	md.calls[OpName]++
	if err := md.failures[OpName]; err != nil {
		return "", err
	}
	if md.name == "" {
		return "", bferrors.NewStatus(bferrors.CodeUnimplemented, "Name() not implemented")
	}
	return md.name, nil
}

// Close marks the destination closed.
func (md *MockDestination) Close() error {
	if err := md.record(OpClose); err != nil {
		return err
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	md.closed = true
	return nil
}

func (md *MockDestination) record(op string) error {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.calls[op]++
	return md.failures[op]
}

// SetPosition sets the position reported before anything is appended.
func (md *MockDestination) SetPosition(pos uint64) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.startPos = pos
}

// FailOn makes every later call of op return err. A nil err clears it.
func (md *MockDestination) FailOn(op string, err error) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.failures[op] = err
}

// FailAppendOnNth makes the nth Append call (1-based) return err.
func (md *MockDestination) FailAppendOnNth(n int, err error) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.appendNth = n
	md.appendErr = err
}

// String returns everything appended so far.
func (md *MockDestination) String() string {
	md.mu.Lock()
	defer md.mu.Unlock()
	return md.data.String()
}

// Len returns the number of bytes appended so far.
func (md *MockDestination) Len() int {
	md.mu.Lock()
	defer md.mu.Unlock()
	return md.data.Len()
}

// Appends returns the payload of each successful Append call in order.
func (md *MockDestination) Appends() []string {
	md.mu.Lock()
	defer md.mu.Unlock()
	out := make([]string, len(md.appends))
	for i, p := range md.appends {
		out[i] = string(p)
	}
	return out
}

// Calls returns how many times op was invoked, failed calls included.
func (md *MockDestination) Calls(op string) int {
	md.mu.Lock()
	defer md.mu.Unlock()
	return md.calls[op]
}

// TotalCalls returns the number of calls across all primitives.
func (md *MockDestination) TotalCalls() int {
	md.mu.Lock()
	defer md.mu.Unlock()
	total := 0
	for _, n := range md.calls {
		total += n
	}
	return total
}

// Closed reports whether Close succeeded.
func (md *MockDestination) Closed() bool {
	md.mu.Lock()
	defer md.mu.Unlock()
	return md.closed
}
