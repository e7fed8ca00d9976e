// Package io provides the side-effect sinks for the synvm emulator.
// A sink is the only way instruction execution touches the outside world:
// character output, character input and halting. It includes a live
// console (Console), an in-memory sink for tests (Mock), and a console
// whose input is replayed from, and recorded to, a log file (Replay).
package io

// Sink defines the interface for all side effects of instruction execution.
type Sink interface {
	// Print emits a single character.
	Print(ch rune) error
	// Read returns the next input character, blocking until one is available.
	Read() (value uint16, err error)
	// Halt signals that the program has stopped.
	Halt()
}

// Recorder is a Sink whose input is replayed from a recording.
type Recorder interface {
	Sink
	// Exhausted returns true once all recorded input has been consumed.
	Exhausted() bool
}
