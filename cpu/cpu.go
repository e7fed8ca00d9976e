// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/ezrec/synvm/io"
)

var log = commonlog.GetLogger("synvm.cpu")

// Sink is the side-effect interface used by instruction execution.
type Sink io.Sink

// Cpu is the machine state: program counter, registers, stack and memory.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc       uint16                 // Program counter.
	Register [REGISTER_COUNT]uint16 // Register bank.
	Stack    Stack                  // Value and return address stack.
	Memory   [MEMORY_SIZE]uint16    // Flat word-addressed memory.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new, zeroed, CPU.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// String returns the current CPU registers as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("%5s: %d\n", "pc", cpu.Pc)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("%5s: %d\n", fmt.Sprintf("r%d", n), val)
	}
	val, ok := cpu.Stack.Peek()
	if ok {
		text += fmt.Sprintf("%5s: %d (%d deep)\n", "stack", val, cpu.Stack.Len())
	} else {
		text += fmt.Sprintf("%5s: -----\n", "stack")
	}

	return
}

// Reset the CPU state.
// - Clears the registers, stack, and memory.
// - Zeros statistics counters.
// - Sets the program counter to 0.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Infof("reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory[:])
	cpu.Stack.Reset()
	cpu.Pc = 0
	cpu.Ticks = 0
}

// Load resets the CPU, and copies the program image into low memory.
func (cpu *Cpu) Load(prog *Program) (err error) {
	if len(prog.Words) > MEMORY_SIZE {
		err = ErrImageTooLarge
		return
	}

	cpu.Reset()
	copy(cpu.Memory[:], prog.Words)

	if cpu.Verbose {
		log.Infof("loaded %d words", len(prog.Words))
	}

	return
}

// Decode decodes the instruction at address.
func (cpu *Cpu) Decode(address uint16) (ins Instruction, size uint16, err error) {
	return Decode(cpu.Memory[:], address)
}

// Value resolves an operand against the current register bank.
func (cpu *Cpu) Value(op Operand) uint16 {
	if op.IsRegister() {
		return cpu.Register[op.Register()]
	}
	return op.Literal()
}

// Write stores value into the register referenced by op.
func (cpu *Cpu) Write(op Operand, value uint16) (err error) {
	if !op.IsRegister() {
		err = ErrWriteTarget
		return
	}

	cpu.Register[op.Register()] = value
	return
}

// Tick fetches, decodes and executes a single instruction. The program
// counter is advanced past the instruction before it is executed.
func (cpu *Cpu) Tick(sink Sink) (err error) {
	ins, size, err := cpu.Decode(cpu.Pc)
	if err != nil {
		return
	}

	cpu.Pc += size

	err = cpu.Execute(ins, sink)
	return
}

// Execute executes a single decoded instruction. The program counter must
// already address the following instruction.
//
// Returns ErrHalted once the sink has been told to halt.
func (cpu *Cpu) Execute(ins Instruction, sink Sink) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, ErrHalted) {
			err = errors.Join(ErrInstruction(ins), err)
		}
	}()

	if cpu.Verbose {
		log.Debugf("%05d: %v", cpu.Pc-ins.Size(), ins)
	}

	cpu.Ticks += 1

	a, b, c := ins.Args[0], ins.Args[1], ins.Args[2]

	switch ins.Op {
	case OP_HALT:
		sink.Halt()
		err = ErrHalted
	case OP_SET:
		err = cpu.Write(a, cpu.Value(b))
	case OP_PUSH:
		cpu.Stack.Push(cpu.Value(a))
	case OP_POP:
		val, ok := cpu.Stack.Peek()
		if !ok {
			err = ErrStackEmpty
			return
		}
		err = cpu.Write(a, val)
		if err != nil {
			return
		}
		cpu.Stack.Pop()
	case OP_EQ:
		err = cpu.Write(a, bool2word(cpu.Value(b) == cpu.Value(c)))
	case OP_GT:
		err = cpu.Write(a, bool2word(cpu.Value(b) > cpu.Value(c)))
	case OP_JMP:
		cpu.Pc = cpu.Value(a)
	case OP_JT:
		if cpu.Value(a) != 0 {
			cpu.Pc = cpu.Value(b)
		}
	case OP_JF:
		if cpu.Value(a) == 0 {
			cpu.Pc = cpu.Value(b)
		}
	case OP_ADD:
		sum := uint32(cpu.Value(b)) + uint32(cpu.Value(c))
		err = cpu.Write(a, uint16(sum%VALUE_MODULUS))
	case OP_MULT:
		product := uint64(cpu.Value(b)) * uint64(cpu.Value(c))
		err = cpu.Write(a, uint16(product%VALUE_MODULUS))
	case OP_MOD:
		divisor := cpu.Value(c)
		if divisor == 0 {
			err = ErrDivideByZero
			return
		}
		// b % c < c <= 32767, so the outer modulus never changes the result.
		err = cpu.Write(a, (cpu.Value(b)%divisor)%VALUE_MODULUS)
	case OP_AND:
		err = cpu.Write(a, cpu.Value(b)&cpu.Value(c))
	case OP_OR:
		err = cpu.Write(a, cpu.Value(b)|cpu.Value(c))
	case OP_NOT:
		err = cpu.Write(a, ^cpu.Value(b)&VALUE_MASK)
	case OP_RMEM:
		err = cpu.Write(a, cpu.Memory[cpu.Value(b)&VALUE_MASK]%VALUE_MODULUS)
	case OP_WMEM:
		cpu.Memory[cpu.Value(a)&VALUE_MASK] = cpu.Value(b)
	case OP_CALL:
		cpu.Stack.Push(cpu.Pc)
		cpu.Pc = cpu.Value(a)
	case OP_RET:
		addr, ok := cpu.Stack.Pop()
		if !ok {
			sink.Halt()
			err = ErrHalted
			return
		}
		cpu.Pc = addr
	case OP_OUT:
		val := cpu.Value(a)
		ch := rune(val)
		if !utf8.ValidRune(ch) {
			err = ErrCharacter(val)
			return
		}
		err = sink.Print(ch)
	case OP_IN:
		if !a.IsRegister() {
			err = ErrWriteTarget
			return
		}
		var val uint16
		val, err = sink.Read()
		if err != nil {
			return
		}
		if val >= VALUE_MODULUS {
			err = ErrInputInvalid
			return
		}
		err = cpu.Write(a, val)
	case OP_NOOP:
		// pass
	default:
		err = ErrOpcode(ins.Op)
	}

	return
}

// bool2word converts a comparison result to 1 or 0.
func bool2word(cond bool) uint16 {
	if cond {
		return 1
	}
	return 0
}
