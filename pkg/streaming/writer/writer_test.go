package writer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/vnykmshr/byteflow/internal/testutil"
	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/metrics"
)

func quietConfig(bufferSize int) Config {
	logger, _ := logtest.NewNullLogger()
	config := DefaultConfig()
	config.BufferSize = bufferSize
	config.Logger = logger
	return config
}

func TestNew(t *testing.T) {
	dest := testutil.NewMockDestination("mock://out")
	dest.SetPosition(42)
	w := New(dest, quietConfig(16))

	testutil.AssertEqual(t, w.Healthy(), true)
	testutil.AssertEqual(t, w.Pos(), Position(42))
	testutil.AssertEqual(t, w.Name(), "mock://out")
	testutil.AssertEqual(t, w.Dest(), dest)
}

func TestNew_ZeroConfigUsesDefaults(t *testing.T) {
	w := New(testutil.NewMockDestination(""), Config{})
	testutil.AssertEqual(t, w.config.BufferSize, DefaultBufferSize)
	testutil.AssertEqual(t, w.config.Logger != nil, true)
}

func TestNew_UnsupportedNameIsNoContext(t *testing.T) {
	dest := testutil.NewMockDestination("")
	w := New(dest, quietConfig(16))

	testutil.AssertEqual(t, w.Healthy(), true)
	testutil.AssertEqual(t, w.Name(), "")
}

func TestNew_NameFailureIsTerminal(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	dest.FailOn(testutil.OpName, errors.New("permission denied"))
	w := New(dest, quietConfig(16))

	testutil.AssertError(t, w.Err())
	testutil.AssertEqual(t, strings.Contains(w.Err().Error(), "Destination.Name failed"), true)
	testutil.AssertEqual(t, dest.Calls(testutil.OpTell), 0)
}

func TestNew_TellFailureIsTerminal(t *testing.T) {
	dest := testutil.NewMockDestination("mock://out")
	boom := errors.New("seek failed")
	dest.FailOn(testutil.OpTell, boom)
	w := New(dest, quietConfig(16))

	testutil.AssertErrorIs(t, w.Err(), boom)
	testutil.AssertEqual(t, w.Err().Error(), "Destination.Tell failed: seek failed (writing mock://out)")

	_, err := w.WriteString("x")
	testutil.AssertErrorIs(t, err, boom)
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 0)
}

// Capacity 2: both writes exceed the buffer and go straight to the destination.
func TestWrite_DirectWritesWithSmallBuffer(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(2))

	_, err := w.WriteString("abc")
	testutil.AssertNoError(t, err)
	_, err = w.WriteString("def")
	testutil.AssertNoError(t, err)

	appends := dest.Appends()
	testutil.AssertEqual(t, len(appends), 2)
	testutil.AssertEqual(t, appends[0], "abc")
	testutil.AssertEqual(t, appends[1], "def")
	testutil.AssertEqual(t, w.Pos(), Position(6))
	testutil.AssertEqual(t, w.Stats().DirectWrites, int64(2))
}

func TestWrite_SmallWritesAreBuffered(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(4096))

	for _, s := range []string{"a", "b", "c"} {
		_, err := w.WriteString(s)
		testutil.AssertNoError(t, err)
	}

	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend) <= 1, true)
	testutil.AssertEqual(t, w.Pos(), Position(3))
	testutil.AssertEqual(t, w.Buffered(), 3)

	testutil.AssertNoError(t, w.Flush(FlushFromObject))
	testutil.AssertEqual(t, dest.String(), "abc")
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 1)
}

func TestWrite_PreservesOrderAcrossBoundaries(t *testing.T) {
	sizes := []int{1, 7, 3, 16, 15, 17, 40, 2, 0, 9, 33, 5}

	for _, bufferSize := range []int{1, 2, 8, 16, 64} {
		t.Run(fmt.Sprintf("buffer=%d", bufferSize), func(t *testing.T) {
			dest := testutil.NewMockDestination("mock")
			w := New(dest, quietConfig(bufferSize))

			var want strings.Builder
			for i, n := range sizes {
				chunk := strings.Repeat(string(rune('a'+i)), n)
				want.WriteString(chunk)
				written, err := w.WriteString(chunk)
				testutil.AssertNoError(t, err)
				testutil.AssertEqual(t, written, n)
			}
			testutil.AssertNoError(t, w.Flush(FlushFromObject))

			testutil.AssertEqual(t, dest.String(), want.String())
			testutil.AssertEqual(t, w.Pos(), Position(want.Len()))
			testutil.AssertEqual(t, w.Stats().BytesAppended, int64(want.Len()))
		})
	}
}

func TestWrite_DirectWriteFlushesBufferedBytesFirst(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(8))

	_, err := w.WriteString("ab")
	testutil.AssertNoError(t, err)
	// 10 bytes reach the threshold of capacity 8 inflated by 2 buffered.
	_, err = w.WriteString("0123456789")
	testutil.AssertNoError(t, err)

	appends := dest.Appends()
	testutil.AssertEqual(t, len(appends), 2)
	testutil.AssertEqual(t, appends[0], "ab")
	testutil.AssertEqual(t, appends[1], "0123456789")
	testutil.AssertEqual(t, w.Pos(), Position(12))
}

func TestWrite_BelowThresholdIsBuffered(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(8))

	_, err := w.WriteString("ab")
	testutil.AssertNoError(t, err)
	// 9 bytes are below capacity 8 inflated by 2 buffered: fill and push.
	_, err = w.WriteString("012345678")
	testutil.AssertNoError(t, err)

	appends := dest.Appends()
	testutil.AssertEqual(t, len(appends), 1)
	testutil.AssertEqual(t, appends[0], "ab012345")
	testutil.AssertEqual(t, w.Buffered(), 3)
	testutil.AssertEqual(t, w.Stats().DirectWrites, int64(0))
}

func TestWriteByte(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(2))

	for _, c := range []byte("hello") {
		testutil.AssertNoError(t, w.WriteByte(c))
	}
	testutil.AssertNoError(t, w.Flush(FlushFromObject))
	testutil.AssertEqual(t, dest.String(), "hello")
	testutil.AssertEqual(t, w.Pos(), Position(5))
}

func TestPushAvailableMove(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(8))

	testutil.AssertEqual(t, len(w.Available()), 0)
	testutil.AssertNoError(t, w.Push())

	room := w.Available()
	testutil.AssertEqual(t, len(room), 8)
	n := copy(room, "direct")
	w.Move(n)

	testutil.AssertEqual(t, w.Pos(), Position(6))
	testutil.AssertNoError(t, w.Flush(FlushFromObject))
	testutil.AssertEqual(t, dest.String(), "direct")

	testutil.AssertPanics(t, func() { w.Move(9) })
}

func TestIOWriterCompatibility(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(4))

	var _ io.Writer = w
	_, err := fmt.Fprintf(w, "%s=%d;", "answer", 42)
	testutil.AssertNoError(t, err)
	_, err = io.Copy(w, strings.NewReader("copied"))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Flush(FlushFromObject))

	testutil.AssertEqual(t, dest.String(), "answer=42;copied")
}

func TestFlush_Levels(t *testing.T) {
	tests := []struct {
		level     FlushType
		wantFlush int
		wantSync  int
	}{
		{FlushFromObject, 0, 0},
		{FlushFromProcess, 1, 0},
		{FlushFromMachine, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			dest := testutil.NewMockDestination("mock")
			w := New(dest, quietConfig(64))

			_, err := w.WriteString("data")
			testutil.AssertNoError(t, err)
			testutil.AssertNoError(t, w.Flush(tt.level))

			testutil.AssertEqual(t, dest.String(), "data")
			testutil.AssertEqual(t, dest.Calls(testutil.OpFlush), tt.wantFlush)
			testutil.AssertEqual(t, dest.Calls(testutil.OpSync), tt.wantSync)
		})
	}
}

func TestFlush_SecondObjectFlushIssuesNoAppend(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(64))

	_, err := w.WriteString("once")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Flush(FlushFromObject))
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 1)

	testutil.AssertNoError(t, w.Flush(FlushFromObject))
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 1)
}

func TestFlush_NothingPendingSucceeds(t *testing.T) {
	dest := testutil.NewMockDestination("")
	w := New(dest, quietConfig(64))

	testutil.AssertNoError(t, w.Flush(FlushFromMachine))
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 0)
	testutil.AssertEqual(t, w.Stats().Flushes, int64(1))
}

func TestFlush_UnknownTypePanics(t *testing.T) {
	w := New(testutil.NewMockDestination("mock"), quietConfig(8))
	testutil.AssertPanics(t, func() { _ = w.Flush(FlushType(7)) })
}

func TestFlush_SyncFailureIsTerminal(t *testing.T) {
	dest := testutil.NewMockDestination("mock://journal")
	dest.FailOn(testutil.OpSync, bferrors.NewStatus(bferrors.CodeDataLoss, "fsync: input/output error"))
	w := New(dest, quietConfig(64))

	_, err := w.WriteString("pending")
	testutil.AssertNoError(t, err)

	err = w.Flush(FlushFromMachine)
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, strings.Contains(err.Error(), "Sync"), true)
	testutil.AssertEqual(t, strings.Contains(err.Error(), "mock://journal"), true)
	testutil.AssertEqual(t, bferrors.CodeOf(err), bferrors.CodeDataLoss)

	appends := dest.Calls(testutil.OpAppend)
	_, err = w.WriteString("more")
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), appends)
}

func TestFailure_NoFurtherDestinationCalls(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	boom := errors.New("disk full")
	dest.FailAppendOnNth(1, boom)
	w := New(dest, quietConfig(4))

	_, err := w.WriteString("too long for the buffer")
	testutil.AssertErrorIs(t, err, boom)
	testutil.AssertEqual(t, w.Healthy(), false)
	testutil.AssertEqual(t, len(w.Available()), 0)

	calls := dest.TotalCalls()

	testutil.AssertErrorIs(t, w.Push(), boom)
	_, err = w.Write([]byte("x"))
	testutil.AssertErrorIs(t, err, boom)
	_, err = w.Write(nil)
	testutil.AssertErrorIs(t, err, boom)
	testutil.AssertErrorIs(t, w.WriteByte('y'), boom)
	for _, level := range []FlushType{FlushFromObject, FlushFromProcess, FlushFromMachine} {
		testutil.AssertErrorIs(t, w.Flush(level), boom)
	}

	testutil.AssertEqual(t, dest.TotalCalls(), calls)
}

func TestFailure_AnnotationWithoutName(t *testing.T) {
	dest := testutil.NewMockDestination("")
	dest.FailOn(testutil.OpFlush, errors.New("broken pipe"))
	w := New(dest, quietConfig(8))

	err := w.Flush(FlushFromProcess)
	testutil.AssertEqual(t, err.Error(), "Destination.Flush failed: broken pipe")
}

func TestOverflow_DirectWrite(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	dest.SetPosition(MaxPosition - 2)
	w := New(dest, quietConfig(2))

	_, err := w.WriteString("abc")
	testutil.AssertErrorIs(t, err, bferrors.ErrPositionOverflow)
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 0)
	testutil.AssertEqual(t, w.Pos(), MaxPosition-2)
}

func TestOverflow_BufferedWrite(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	dest.SetPosition(MaxPosition - 2)
	w := New(dest, quietConfig(4096))

	_, err := w.WriteString("abc")
	testutil.AssertErrorIs(t, err, bferrors.ErrPositionOverflow)
	testutil.AssertEqual(t, dest.String(), "ab")
	testutil.AssertEqual(t, w.Pos(), MaxPosition)

	_, err = w.WriteString("d")
	testutil.AssertErrorIs(t, err, bferrors.ErrPositionOverflow)
	testutil.AssertEqual(t, dest.Calls(testutil.OpAppend), 1)
}

func TestOverflow_ExactlyToMaxSucceeds(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	dest.SetPosition(MaxPosition - 3)
	w := New(dest, quietConfig(4096))

	_, err := w.WriteString("abc")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Flush(FlushFromObject))
	testutil.AssertEqual(t, w.Pos(), MaxPosition)
}

func TestOpen(t *testing.T) {
	provider := &mockProvider{dests: map[string]*testutil.MockDestination{}}
	w := Open(provider, "/data/out.log", quietConfig(16))
	testutil.AssertEqual(t, w.Healthy(), true)

	_, err := w.WriteString("opened")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Close())

	dest := provider.dests["/data/out.log"]
	testutil.AssertEqual(t, dest.String(), "opened")
	testutil.AssertEqual(t, dest.Closed(), true)
}

func TestOpen_FailureAnnotatedWithPath(t *testing.T) {
	provider := &mockProvider{err: bferrors.NewStatus(bferrors.CodePermissionDenied, "open denied")}
	w := Open(provider, "/root/secret.log", quietConfig(16))

	err := w.Err()
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, err.Error(),
		"Destination.OpenAppendable failed: PERMISSION_DENIED: open denied (writing /root/secret.log)")

	_, werr := w.WriteString("x")
	testutil.AssertEqual(t, werr, err)
	testutil.AssertEqual(t, w.Close(), err)
}

func TestClose(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	w := New(dest, quietConfig(64))

	_, err := w.WriteString("tail")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Close())
	testutil.AssertNoError(t, w.Close())

	testutil.AssertEqual(t, dest.String(), "tail")
	testutil.AssertEqual(t, dest.Closed(), true)
	testutil.AssertEqual(t, dest.Calls(testutil.OpClose), 1)

	_, err = w.WriteString("late")
	testutil.AssertErrorIs(t, err, bferrors.ErrClosed)
	testutil.AssertErrorIs(t, w.Flush(FlushFromObject), bferrors.ErrClosed)
	testutil.AssertEqual(t, w.Err(), nil)
}

func TestClose_KeepDestinationOpen(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	config := quietConfig(64)
	config.KeepDestinationOpen = true
	w := New(dest, config)

	testutil.AssertNoError(t, w.Close())
	testutil.AssertEqual(t, dest.Closed(), false)
}

func TestClose_DestinationCloseFailure(t *testing.T) {
	dest := testutil.NewMockDestination("mock")
	dest.FailOn(testutil.OpClose, errors.New("close failed"))
	w := New(dest, quietConfig(64))

	err := w.Close()
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, strings.Contains(err.Error(), "Destination.Close failed"), true)
	testutil.AssertEqual(t, w.Err(), err)
}

func TestConfigValidate(t *testing.T) {
	testutil.AssertNoError(t, DefaultConfig().Validate())

	err := Config{BufferSize: -1}.Validate()
	testutil.AssertErrorIs(t, err, bferrors.ErrInvalidConfiguration)
}

func TestFailureIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	config := DefaultConfig()
	config.Logger = logger

	dest := testutil.NewMockDestination("mock://logged")
	dest.FailOn(testutil.OpAppend, errors.New("nope"))
	w := New(dest, config)

	_, err := w.Write(make([]byte, DefaultBufferSize))
	testutil.AssertError(t, err)

	entry := hook.LastEntry()
	testutil.AssertEqual(t, entry != nil, true)
	testutil.AssertEqual(t, entry.Level, logrus.ErrorLevel)
	testutil.AssertEqual(t, entry.Data["destination"], interface{}("mock://logged"))
	testutil.AssertEqual(t, entry.Data["operation"], interface{}("Append"))
}

func TestMetrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	config := quietConfig(4)
	config.Metrics = reg
	config.MetricsName = "records"

	dest := testutil.NewMockDestination("mock")
	w := New(dest, config)

	_, err := w.WriteString("ab")
	testutil.AssertNoError(t, err)
	_, err = w.WriteString("long payload")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Flush(FlushFromProcess))

	testutil.AssertEqual(t, promtest.ToFloat64(reg.WriterAppends.WithLabelValues("records")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WriterDirectWrites.WithLabelValues("records")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WriterBytesWritten.WithLabelValues("records")), 14.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WriterFlushes.WithLabelValues("records", "process")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WriterPosition.WithLabelValues("records")), 14.0)

	dest.FailOn(testutil.OpSync, errors.New("sync"))
	testutil.AssertError(t, w.Flush(FlushFromMachine))
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WriterFailures.WithLabelValues("records", "Sync")), 1.0)
}

func TestSaturatingAdd(t *testing.T) {
	const maxInt = int(^uint(0) >> 1)
	testutil.AssertEqual(t, saturatingAdd(1, 2), 3)
	testutil.AssertEqual(t, saturatingAdd(maxInt, 1), maxInt)
	testutil.AssertEqual(t, saturatingAdd(maxInt-5, 10), maxInt)
}

func TestPreconditionPanics(t *testing.T) {
	w := New(testutil.NewMockDestination("mock"), quietConfig(8))
	testutil.AssertNoError(t, w.Push())

	testutil.AssertPanics(t, func() { _ = w.pushSlow() })
	testutil.AssertPanics(t, func() { _ = w.writeSlow([]byte("x")) })
	testutil.AssertPanics(t, func() { _ = w.writeInternal(nil) })
}

type mockProvider struct {
	dests map[string]*testutil.MockDestination
	err   error
}

func (p *mockProvider) OpenAppendable(path string) (Destination, error) {
	if p.err != nil {
		return nil, p.err
	}
	dest := testutil.NewMockDestination(path)
	p.dests[path] = dest
	return dest, nil
}
