// Package io provides program image loading and the I/O channels that feed
// a machine's input instructions and collect its output.
package io

import (
	"iter"
)

// Channel defines the interface for machine I/O channels.
type Channel interface {
	// Rewind resets the channel to its initial state.
	Rewind()
	// Receive returns an iterator that yields input values from the channel.
	Receive() iter.Seq[int64]
	// Send writes a single output value to the channel.
	Send(value int64) error
}
