// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/ezrec/synvm/cpu"
	"github.com/ezrec/synvm/io"
)

var log = commonlog.GetLogger("synvm.emulator")

// Flusher is a sink with buffered output.
type Flusher interface {
	Flush() error
}

// Emulator state. CPU + side-effect sink.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program.
	Sink     io.Sink      // Side-effects of the running program.
	Halted   bool         // Set once the program has halted.
}

// NewEmulator creates a new emulator, with its side-effects sent to sink.
func NewEmulator(sink io.Sink) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
		Sink:    sink,
	}

	return
}

// Close the emulator, flushing any pending output.
func (emu *Emulator) Close() (err error) {
	flusher, ok := emu.Sink.(Flusher)
	if ok {
		err = flusher.Flush()
	}

	return
}

// Load a program into memory, and reset the machine.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	emu.Program = prog

	err = emu.Reset()
	return
}

// Reset the machine, reloading the current program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Halted = false

	err = emu.Cpu.Load(emu.Program)
	return
}

// LineNo returns the source line number for the next instruction, or 0 if
// the program was not assembled.
func (emu *Emulator) LineNo() int {
	return emu.lineNoAt(emu.Cpu.Pc)
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Halted {
		done = true
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: emu.lineNoAt(pc), Err: err}
		}
	}()

	err = emu.Cpu.Tick(emu.Sink)
	if errors.Is(err, cpu.ErrHalted) {
		if emu.Verbose {
			log.Infof("halted at %d after %d instructions", pc, emu.Cpu.Ticks)
		}
		err = nil
		emu.Halted = true
		done = true
		return
	}

	return
}

// Run ticks the emulator until the program halts, or fails. The error is
// returned for the caller to report.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
}

// lineNoAt returns the source line number of address, or 0.
func (emu *Emulator) lineNoAt(address uint16) int {
	line, ok := emu.Program.Debug(address)
	if !ok {
		return 0
	}

	return line.LineNo
}
