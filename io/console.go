package io

import (
	"bufio"
	"errors"
	"io"
)

// Console is the live sink. It reads characters from Input, and writes
// them UTF-8 encoded to Output.
//
// Output is buffered, and flushed on newline, before every Read, and on Halt.
type Console struct {
	Input  io.Reader
	Output io.Writer

	Halted bool // Set once Halt has been called.

	writer *bufio.Writer
}

var _ Sink = (*Console)(nil)

// Print writes a character to the output stream.
func (con *Console) Print(ch rune) (err error) {
	if con.writer == nil {
		con.writer = bufio.NewWriter(con.Output)
	}

	_, err = con.writer.WriteRune(ch)
	if err != nil {
		return
	}

	if ch == '\n' {
		err = con.writer.Flush()
	}

	return
}

// Read reads a single byte from the input stream, blocking until one is
// available.
func (con *Console) Read() (value uint16, err error) {
	err = con.Flush()
	if err != nil {
		return
	}

	var one [1]byte
	if br, ok := con.Input.(io.ByteReader); ok {
		one[0], err = br.ReadByte()
	} else {
		_, err = io.ReadFull(con.Input, one[:])
	}
	if errors.Is(err, io.EOF) {
		err = ErrInputClosed
	}
	if err != nil {
		return
	}

	value = uint16(one[0])
	return
}

// Flush writes any buffered output.
func (con *Console) Flush() (err error) {
	if con.writer != nil {
		err = con.writer.Flush()
	}
	return
}

// Halt flushes the output, and marks the console as halted.
func (con *Console) Halt() {
	con.Flush()
	con.Halted = true
}
