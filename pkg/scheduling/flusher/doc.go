/*
Package flusher flushes a writer.Writer on a cron schedule.

A Writer only pushes data to its destination when its buffer fills or when
it is flushed. For long-lived writers that receive bursts of small records,
a Flusher bounds how long data can sit in the buffer:

	w := writer.Open(file.NewProvider(), "/var/log/app/events.log", writer.DefaultConfig())
	f, err := flusher.New(w, flusher.Config{
		Spec:  "@every 5s",
		Level: writer.FlushFromMachine,
		OnError: func(err error) {
			log.Printf("journal lost: %v", err)
		},
	})
	if err != nil {
		return err
	}
	f.Start()
	defer f.Close()

	f.WriteString("event\n")

Writes, manual flushes and scheduled flushes are serialized by the Flusher;
use Do for other operations on the writer. Once the writer fails,
scheduled flushes stop touching it and OnError is called exactly once.

Specs use the robfig/cron syntax with an optional leading seconds field.
*/
package flusher
