/*
Package byteflow provides buffered, position-tracking writers over
append-only byte destinations.

Core (pkg/buffer, pkg/cord):
  - buffer: fixed-capacity byte block convertible to a cord, copying or
    moving the block depending on how much of it is used
  - cord: rope of immutable byte segments sharing memory by reference

Streaming (pkg/streaming):
  - writer: buffered Writer with position tracking, three-level Flush and
    terminal failure; CordWriter for in-memory output

Destinations (pkg/destination):
  - file: local files opened for appending
  - redis: Redis strings extended with APPEND
  - oss: Aliyun OSS appendable objects

Scheduling (pkg/scheduling):
  - flusher: cron-driven background flushing

Example usage:

	import (
		"github.com/vnykmshr/byteflow/pkg/destination/file"
		"github.com/vnykmshr/byteflow/pkg/streaming/writer"
	)

	w := writer.Open(file.NewProvider(), "events.log", writer.DefaultConfig())
	if !w.Healthy() {
		return w.Err()
	}
	defer w.Close()

	w.WriteString("event\n")
	w.Flush(writer.FlushFromMachine)
*/
package byteflow
