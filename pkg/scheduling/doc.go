/*
Package scheduling provides time-driven helpers for writers.

  - flusher: flushes a writer.Writer on a cron schedule

Scheduled flushing:

	f, err := flusher.New(w, flusher.Config{Spec: "@every 5s", Level: writer.FlushFromMachine})
	if err != nil {
		return err
	}
	f.Start()
	defer f.Close()
*/
package scheduling
