// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package debugger provides an interactive debugger for the synvm emulator:
// breakpoints, single stepping, tracing, instruction patches and a
// line-oriented operator shell.
package debugger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/tliron/commonlog"

	"github.com/ezrec/synvm/cpu"
	"github.com/ezrec/synvm/emulator"
	vmio "github.com/ezrec/synvm/io"
)

var log = commonlog.GetLogger("synvm.debugger")

// DefaultPatches returns the patches for the published challenge image,
// which bypass its self-check and the teleporter confirmation loop.
func DefaultPatches() map[uint16]cpu.Instruction {
	return map[uint16]cpu.Instruction{
		5451: cpu.MakeInstruction(cpu.OP_NOOP),
		5483: cpu.MakeInstruction(cpu.OP_SET, cpu.Register(0), cpu.Literal(6)),
		5486: cpu.MakeInstruction(cpu.OP_SET, cpu.Register(7), cpu.Literal(25734)),
		5489: cpu.MakeInstruction(cpu.OP_NOOP),
	}
}

// Debugger state.
type Debugger struct {
	Verbose        bool                       // If set, enables verbose logging.
	Breakpoints    map[uint16]bool            // Addresses that enter the shell.
	SingleStep     bool                       // Enter the shell before every instruction.
	BreakOnExhaust bool                       // One-shot break when replay input runs out.
	Trace          bool                       // Print every instruction before it executes.
	Patches        map[uint16]cpu.Instruction // Instructions replaced at fetch.

	Input  *bufio.Reader // Operator commands.
	Output io.Writer     // Operator responses and traces.
	Prompt bool          // Write a prompt before every command.
}

// NewDebugger creates a debugger, with the default patches installed,
// reading operator commands from input.
func NewDebugger(input io.Reader, output io.Writer) (dbg *Debugger) {
	reader, ok := input.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(input)
	}

	dbg = &Debugger{
		Breakpoints:    map[uint16]bool{},
		BreakOnExhaust: true,
		Patches:        DefaultPatches(),
		Input:          reader,
		Output:         output,
	}

	return
}

// ToggleBreakpoint adds a breakpoint at address, or removes it if present.
// Returns true if the breakpoint is now set.
func (dbg *Debugger) ToggleBreakpoint(address uint16) (set bool) {
	if dbg.Breakpoints == nil {
		dbg.Breakpoints = map[uint16]bool{}
	}

	set = !dbg.Breakpoints[address]
	if set {
		dbg.Breakpoints[address] = true
	} else {
		delete(dbg.Breakpoints, address)
	}

	if dbg.Verbose {
		log.Debugf("breakpoint %d: %v", address, set)
	}

	return
}

// Fetch decodes the instruction at pc. A patched address returns the patch
// instead, but always with the size of the instruction in memory.
func (dbg *Debugger) Fetch(c *cpu.Cpu) (ins cpu.Instruction, size uint16, err error) {
	ins, size, err = c.Decode(c.Pc)
	if err != nil {
		return
	}

	patch, ok := dbg.Patches[c.Pc]
	if ok {
		ins = patch
	}

	return
}

// Step executes a single, possibly patched, instruction.
func (dbg *Debugger) Step(emu *emulator.Emulator) (done bool, err error) {
	if emu.Halted {
		done = true
		return
	}

	c := emu.Cpu
	c.Verbose = emu.Verbose

	pc := c.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &emulator.ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	ins, size, err := dbg.Fetch(c)
	if err != nil {
		return
	}

	c.Pc += size
	err = c.Execute(ins, emu.Sink)
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
		emu.Halted = true
		done = true
	}

	return
}

// Run executes, with patches, until the program halts or fails.
func (dbg *Debugger) Run(emu *emulator.Emulator) (err error) {
	for {
		var done bool
		done, err = dbg.Step(emu)
		if done || err != nil {
			return
		}
	}
}

// Debug executes until the program halts, fails, or the operator quits.
// The shell is entered at breakpoints, while single stepping, and once
// when the sink's recorded input is exhausted.
func (dbg *Debugger) Debug(emu *emulator.Emulator) (err error) {
	recorder, _ := emu.Sink.(vmio.Recorder)

	for {
		c := emu.Cpu

		if dbg.BreakOnExhaust && recorder != nil && recorder.Exhausted() {
			log.Infof("replay exhausted at pc %d", c.Pc)
			dbg.BreakOnExhaust = false
			dbg.SingleStep = true
		}

		if dbg.Breakpoints[c.Pc] {
			dbg.SingleStep = true
		}

		if dbg.SingleStep || dbg.Trace {
			dbg.flush(emu)
			dbg.printListing(c, c.Pc)
		}

		if dbg.SingleStep {
			err = dbg.Shell(emu)
			if err != nil {
				return
			}
		}

		var done bool
		done, err = dbg.Step(emu)
		if done || err != nil {
			return
		}
	}
}

// flush writes any pending program output before the debugger writes.
func (dbg *Debugger) flush(emu *emulator.Emulator) {
	flusher, ok := emu.Sink.(emulator.Flusher)
	if ok {
		flusher.Flush()
	}
}

// printListing writes the instruction at address, as it will execute.
func (dbg *Debugger) printListing(c *cpu.Cpu, address uint16) {
	ins, _, err := cpu.Decode(c.Memory[:], address)
	patch, patched := dbg.Patches[address]
	switch {
	case err != nil:
		fmt.Fprintf(dbg.Output, "%d: ?? %v\n", address, err)
	case patched:
		fmt.Fprintf(dbg.Output, "%d: %v (patched, was %v)\n", address, patch, ins)
	default:
		fmt.Fprintf(dbg.Output, "%d: %v\n", address, ins)
	}
}

// SetPatches replaces the patch table.
func (dbg *Debugger) SetPatches(patches map[uint16]cpu.Instruction) {
	dbg.Patches = maps.Clone(patches)
	if dbg.Patches == nil {
		dbg.Patches = map[uint16]cpu.Instruction{}
	}
}
