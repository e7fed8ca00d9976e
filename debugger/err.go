package debugger

import (
	"errors"

	"github.com/ezrec/synvm/translate"
)

var f = translate.From

var (
	// Shell errors
	ErrQuit          = errors.New(f("debugger quit"))
	ErrNoBreakpoints = errors.New(f("no breakpoints"))
	ErrNoPatches     = errors.New(f("no patches"))
)

// ErrCommand is an unrecognized shell command.
type ErrCommand string

func (err ErrCommand) Error() string {
	return f("unknown command '%v', try 'help'", string(err))
}

// ErrUsage is a shell command with the wrong arguments.
type ErrUsage string

func (err ErrUsage) Error() string {
	return f("usage: %v", string(err))
}

// ErrNumber is a shell argument that is not an integer.
type ErrNumber string

func (err ErrNumber) Error() string {
	return f("expected integer, found '%v'", string(err))
}

// ErrRegister is a register name that is out of range.
type ErrRegister string

func (err ErrRegister) Error() string {
	return f("register must be reg0..reg7, found '%v'", string(err))
}

// ErrValue is a value that does not fit the target.
type ErrValue uint

func (err ErrValue) Error() string {
	return f("value %d out of range", uint(err))
}

// ErrNoPatch is an address without a patch.
type ErrNoPatch uint16

func (err ErrNoPatch) Error() string {
	return f("no patch at %d", uint16(err))
}
