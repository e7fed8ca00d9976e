package io

import (
	"errors"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("synvm.io")

// Replay is a console whose input is first replayed from an append-only log
// file. Once the log is exhausted, input is read from the live console, and
// every character read is appended to the log.
//
// The log is opened and closed on every Read, so no file handle is held
// while waiting for live input.
type Replay struct {
	Console

	Verbose  bool   // If set, logs every recorded character.
	Path     string // Path to the replay log.
	Position int64  // Offset of the next character to replay.

	recording bool
}

var _ Recorder = (*Replay)(nil)

// NewReplay creates a replay sink over the log at path, falling back to the
// live input and output streams.
func NewReplay(path string, input io.Reader, output io.Writer) (replay *Replay) {
	replay = &Replay{
		Console: Console{Input: input, Output: output},
		Path:    path,
	}
	return
}

// Size returns the current size of the log. A missing log is empty.
func (replay *Replay) Size() (size int64, err error) {
	info, err := os.Stat(replay.Path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
		return
	}
	if err != nil {
		err = &ErrReplay{Path: replay.Path, Err: err}
		return
	}

	size = info.Size()
	return
}

// Exhausted returns true once every recorded character has been replayed.
func (replay *Replay) Exhausted() bool {
	size, err := replay.Size()
	if err != nil {
		return true
	}
	return replay.Position >= size
}

// Rewind restarts the replay from the beginning of the log.
func (replay *Replay) Rewind() {
	replay.Position = 0
	replay.recording = false
}

// Read returns the next recorded character, or, once the log is exhausted,
// the next live character, which is then appended to the log.
func (replay *Replay) Read() (value uint16, err error) {
	size, err := replay.Size()
	if err != nil {
		return
	}

	if replay.Position >= size {
		if !replay.recording {
			log.Infof("%v: replay exhausted at %d, recording", replay.Path, replay.Position)
			replay.recording = true
		}
		value, err = replay.record()
	} else {
		value, err = replay.replay()
	}
	if err != nil {
		return
	}

	replay.Position++
	return
}

// replay reads the character at Position from the log.
func (replay *Replay) replay() (value uint16, err error) {
	file, err := os.Open(replay.Path)
	if err != nil {
		err = &ErrReplay{Path: replay.Path, Err: err}
		return
	}
	defer file.Close()

	var one [1]byte
	_, err = file.ReadAt(one[:], replay.Position)
	if err != nil {
		err = &ErrReplay{Path: replay.Path, Err: err}
		return
	}

	value = uint16(one[0])
	return
}

// record reads a live character, and appends it to the log.
func (replay *Replay) record() (value uint16, err error) {
	value, err = replay.Console.Read()
	if err != nil {
		return
	}

	file, err := os.OpenFile(replay.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		err = &ErrReplay{Path: replay.Path, Err: err}
		return
	}

	_, err = file.Write([]byte{byte(value)})
	if err == nil {
		err = file.Close()
	} else {
		file.Close()
	}
	if err != nil {
		err = &ErrReplay{Path: replay.Path, Err: err}
		return
	}

	if replay.Verbose {
		log.Debugf("recorded %q at %d", rune(value), replay.Position)
	}

	return
}
