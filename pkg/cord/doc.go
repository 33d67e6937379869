/*
Package cord provides Cord, a segmented immutable byte string that can
reference memory it does not own.

A Cord is assembled from segments. Short payloads are copied into owned
nodes; large payloads can be attached without copying through FromExternal,
which takes a release hook that runs once the last Cord referencing that
memory has been released:

	block := make([]byte, 1<<20)
	n := fill(block)
	c := cord.FromExternal(block[:n], func() { pool.Put(block) })
	defer c.Release()

	clone := c.Clone()  // shares the block, holds its own reference
	clone.Release()     // block still alive through c

Cords are used by the buffer package to hand buffered bytes to consumers
without copying large, well-utilized buffers.
*/
package cord
