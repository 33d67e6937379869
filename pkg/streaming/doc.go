/*
Package streaming groups the byte-stream writers.

  - writer: buffered Writer over an append-only Destination, plus a
    CordWriter that builds an in-memory cord

Basic usage:

	w := writer.Open(file.NewProvider(), "events.log", writer.DefaultConfig())
	defer w.Close()

	w.WriteString("event\n")
	w.Flush(writer.FlushFromProcess)

Writers fail terminally: after the first destination error every operation
returns the same annotated error.
*/
package streaming
