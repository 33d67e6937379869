/*
Package writer provides a buffered writer over pluggable storage destinations
with exact position tracking.

A Writer decides per write whether to copy into its buffer or to append
straight through to the Destination, tracks the absolute position of the
next byte, and exposes a three-level flush contract.

# Quick Start

	w := writer.Open(file.NewProvider(), "/var/data/records.log", writer.DefaultConfig())
	defer w.Close()

	w.WriteString("record 1\n")
	w.Write(payload)

	if err := w.Flush(writer.FlushFromMachine); err != nil {
		log.Fatal(err) // e.g. "Destination.Sync failed: ... (writing /var/data/records.log)"
	}

# Destinations

Any type with Append, Flush, Sync, Tell and Name can be written to. Writer is
generic over the destination type so the concrete type stays available
through Dest:

	dest, err := redisdest.New(redisdest.Config{Client: rdb, Key: "events"})
	if err != nil {
		return err
	}
	w := writer.New(dest, cfg) // w.Dest() is a *redisdest.Destination

# Buffering

Writes that fit in the buffer are copied. A write at least as long as the
buffer capacity (plus whatever is already buffered) flushes the buffered
bytes and is appended directly, so large payloads are never copied.

# Flushing

	w.Flush(writer.FlushFromObject)  // buffered bytes appended to the destination
	w.Flush(writer.FlushFromProcess) // and Destination.Flush: visible to other processes
	w.Flush(writer.FlushFromMachine) // and Destination.Sync: durable across crashes

# Failures

The first destination error, or a write that would move the position past
MaxPosition, puts the writer in a terminal failed state. The error names the
failing primitive and the destination:

	Destination.Append failed: NOT_FOUND: bucket missing (writing oss://logs/app.log)

Every later call returns the same error without touching the destination.
There are no retries; create a new Writer over a new or repositioned
destination to continue.

# Cords

CordWriter collects output into a cord.Cord. Filled buffers are moved into
the cord without copying when they are well utilized.

# Thread Safety

Writer and CordWriter are not safe for concurrent use. See the flusher
package for a synchronized writer with scheduled flushes.
*/
package writer
