// Package validation provides the configuration checks shared by the writer,
// its destinations and the flusher, so that rejected values produce
// consistent ValidationError messages.
package validation
