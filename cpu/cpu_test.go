package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/synvm/io"
)

func TestOperandOf(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		word     uint16
		register int
		err      error
	}){
		{0, -1, nil},
		{1234, -1, nil},
		{32767, -1, nil},
		{32768, 0, nil},
		{32775, 7, nil},
		{32776, -1, ErrOperand(0)},
		{65535, -1, ErrOperand(0)},
	}

	for _, entry := range table {
		op, err := OperandOf(entry.word)
		if entry.err != nil {
			assert.ErrorIs(err, entry.err, entry.word)
			continue
		}
		assert.NoError(err, entry.word)
		assert.Equal(entry.register, op.Register(), entry.word)
		assert.Equal(entry.word, op.Word(), entry.word)
		if entry.register < 0 {
			assert.Equal(entry.word, op.Literal(), entry.word)
			assert.False(op.IsRegister())
		} else {
			assert.True(op.IsRegister())
		}
	}
}

func TestOperand_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("0", Operand{}.String())
	assert.Equal("42", Literal(42).String())
	assert.Equal("5", Literal(32773).String())
	assert.Equal("r5", Register(5).String())
	assert.Panics(func() { Register(8) })
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	ins, size, err := Decode([]uint16{19, 65}, 0)
	assert.NoError(err)
	assert.Equal(uint16(2), size)
	assert.Equal(MakeInstruction(OP_OUT, Literal(65)), ins)
	assert.Equal("out 65", ins.String())

	ins, size, err = Decode([]uint16{0, 9, 32768, 32769, 4}, 1)
	assert.NoError(err)
	assert.Equal(uint16(4), size)
	assert.Equal("add r0 r1 4", ins.String())
	assert.Equal([]uint16{9, 32768, 32769, 4}, ins.Words())

	ins, size, err = Decode([]uint16{21}, 0)
	assert.NoError(err)
	assert.Equal(uint16(1), size)
	assert.Equal(OP_NOOP, ins.Op)

	table := [](struct {
		memory  []uint16
		address uint16
		err     error
	}){
		{[]uint16{22}, 0, ErrOpcode(0)},
		{[]uint16{0xffff}, 0, ErrOpcode(0)},
		{[]uint16{1, 32768}, 0, ErrOperandMissing},
		{[]uint16{19, 32776}, 0, ErrOperand(0)},
		{[]uint16{19, 65}, 2, ErrAddress(0)},
	}

	for _, entry := range table {
		_, size, err := Decode(entry.memory, entry.address)
		assert.ErrorIs(err, entry.err, entry.memory)
		assert.Equal(uint16(0), size, entry.memory)
	}
}

func TestOpcodeOf(t *testing.T) {
	assert := assert.New(t)

	for n := range OP_COUNT {
		op := Opcode(n)
		found, ok := OpcodeOf(op.String())
		assert.True(ok, op.String())
		assert.Equal(op, found)
	}

	_, ok := OpcodeOf("jump")
	assert.False(ok)

	assert.Equal(3, OP_ADD.Arity())
	assert.Equal(0, Opcode(99).Arity())
	assert.True(OP_IN.Writes())
	assert.False(OP_WMEM.Writes())
}

func TestCpu_Execute(t *testing.T) {
	assert := assert.New(t)

	r := Register

	table := [](struct {
		name   string
		ins    Instruction
		setup  func(cpu *Cpu)
		input  string
		check  func(cpu *Cpu, mock *io.Mock)
		err    error
		output string
	}){
		{name: "set", ins: MakeInstruction(OP_SET, r(0), Literal(5)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(5), cpu.Register[0]) }},
		{name: "set-reg", ins: MakeInstruction(OP_SET, r(1), r(0)),
			setup: func(cpu *Cpu) { cpu.Register[0] = 7 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(7), cpu.Register[1]) }},
		{name: "set-literal", ins: MakeInstruction(OP_SET, Literal(5), Literal(6)), err: ErrWriteTarget},
		{name: "push", ins: MakeInstruction(OP_PUSH, Literal(9)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal([]uint16{9}, cpu.Stack.Data) }},
		{name: "pop", ins: MakeInstruction(OP_POP, r(2)),
			setup: func(cpu *Cpu) { cpu.Stack.Push(3) },
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16(3), cpu.Register[2])
				assert.True(cpu.Stack.Empty())
			}},
		{name: "pop-empty", ins: MakeInstruction(OP_POP, r(2)), err: ErrStackEmpty},
		{name: "pop-literal", ins: MakeInstruction(OP_POP, Literal(2)), err: ErrWriteTarget,
			setup: func(cpu *Cpu) { cpu.Stack.Push(3) },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(1, cpu.Stack.Len()) }},
		{name: "eq-true", ins: MakeInstruction(OP_EQ, r(0), Literal(3), Literal(3)),
			setup: func(cpu *Cpu) { cpu.Register[0] = 9 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(1), cpu.Register[0]) }},
		{name: "eq-false", ins: MakeInstruction(OP_EQ, r(0), Literal(3), Literal(4)),
			setup: func(cpu *Cpu) { cpu.Register[0] = 9 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(0), cpu.Register[0]) }},
		{name: "gt-true", ins: MakeInstruction(OP_GT, r(0), Literal(4), Literal(3)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(1), cpu.Register[0]) }},
		{name: "gt-equal", ins: MakeInstruction(OP_GT, r(0), Literal(3), Literal(3)),
			setup: func(cpu *Cpu) { cpu.Register[0] = 9 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(0), cpu.Register[0]) }},
		{name: "jmp", ins: MakeInstruction(OP_JMP, Literal(100)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(100), cpu.Pc) }},
		{name: "jmp-reg", ins: MakeInstruction(OP_JMP, r(4)),
			setup: func(cpu *Cpu) { cpu.Register[4] = 321 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(321), cpu.Pc) }},
		{name: "jt-taken", ins: MakeInstruction(OP_JT, Literal(1), Literal(50)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(50), cpu.Pc) }},
		{name: "jt-not-taken", ins: MakeInstruction(OP_JT, Literal(0), Literal(50)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(10), cpu.Pc) }},
		{name: "jf-taken", ins: MakeInstruction(OP_JF, Literal(0), Literal(50)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(50), cpu.Pc) }},
		{name: "jf-not-taken", ins: MakeInstruction(OP_JF, r(0), Literal(50)),
			setup: func(cpu *Cpu) { cpu.Register[0] = 1 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(10), cpu.Pc) }},
		{name: "add-wrap", ins: MakeInstruction(OP_ADD, r(0), Literal(32758), Literal(15)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(5), cpu.Register[0]) }},
		{name: "mult-wrap", ins: MakeInstruction(OP_MULT, r(0), r(1), r(1)),
			setup: func(cpu *Cpu) { cpu.Register[1] = 32767 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(1), cpu.Register[0]) }},
		{name: "mod", ins: MakeInstruction(OP_MOD, r(0), Literal(10), Literal(3)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(1), cpu.Register[0]) }},
		{name: "mod-zero", ins: MakeInstruction(OP_MOD, r(0), Literal(10), Literal(0)), err: ErrDivideByZero},
		{name: "and", ins: MakeInstruction(OP_AND, r(0), Literal(12), Literal(10)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(8), cpu.Register[0]) }},
		{name: "or", ins: MakeInstruction(OP_OR, r(0), Literal(12), Literal(10)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(14), cpu.Register[0]) }},
		{name: "not-zero", ins: MakeInstruction(OP_NOT, r(0), Literal(0)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(32767), cpu.Register[0]) }},
		{name: "not-mask", ins: MakeInstruction(OP_NOT, r(0), Literal(32767)),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(0), cpu.Register[0]) }},
		{name: "rmem", ins: MakeInstruction(OP_RMEM, r(0), Literal(200)),
			setup: func(cpu *Cpu) { cpu.Memory[200] = 42 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(42), cpu.Register[0]) }},
		{name: "rmem-wrap", ins: MakeInstruction(OP_RMEM, r(0), Literal(100)),
			setup: func(cpu *Cpu) { cpu.Memory[100] = 40000 },
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16(40000-VALUE_MODULUS), cpu.Register[0])
				assert.Equal(uint16(40000), cpu.Memory[100])
				assert.NoError(cpu.Snapshot().Validate())
			}},
		{name: "wmem", ins: MakeInstruction(OP_WMEM, Literal(300), r(1)),
			setup: func(cpu *Cpu) { cpu.Register[1] = 55 },
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(55), cpu.Memory[300]) }},
		{name: "call", ins: MakeInstruction(OP_CALL, Literal(500)),
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16(500), cpu.Pc)
				assert.Equal([]uint16{10}, cpu.Stack.Data)
			}},
		{name: "ret", ins: MakeInstruction(OP_RET),
			setup: func(cpu *Cpu) { cpu.Stack.Push(77) },
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16(77), cpu.Pc)
				assert.Equal(0, mock.Halts)
			}},
		{name: "ret-empty", ins: MakeInstruction(OP_RET), err: ErrHalted,
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(1, mock.Halts) }},
		{name: "out", ins: MakeInstruction(OP_OUT, Literal('A')), output: "A",
			setup: func(cpu *Cpu) {
				cpu.Register = [REGISTER_COUNT]uint16{1, 2, 3, 4, 5, 6, 7, 8}
				cpu.Stack.Push(99)
				cpu.Memory[0] = 1234
			},
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16(10), cpu.Pc)
				assert.Equal([REGISTER_COUNT]uint16{1, 2, 3, 4, 5, 6, 7, 8}, cpu.Register)
				assert.Equal([]uint16{99}, cpu.Stack.Data)
				assert.Equal(uint16(1234), cpu.Memory[0])
				for n := 1; n < MEMORY_SIZE; n++ {
					if cpu.Memory[n] != 0 {
						assert.Fail("memory changed", "address %d", n)
						break
					}
				}
			}},
		{name: "out-reg", ins: MakeInstruction(OP_OUT, r(3)), output: "\n",
			setup: func(cpu *Cpu) { cpu.Register[3] = '\n' }},
		{name: "out-surrogate", ins: MakeInstruction(OP_OUT, r(3)), err: ErrCharacter(0),
			setup: func(cpu *Cpu) { cpu.Register[3] = 0xd800 }},
		{name: "in", ins: MakeInstruction(OP_IN, r(3)), input: "x",
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16('x'), cpu.Register[3])
				assert.Empty(mock.Input)
			}},
		{name: "in-empty", ins: MakeInstruction(OP_IN, r(3)), err: io.ErrInputEmpty},
		{name: "in-literal", ins: MakeInstruction(OP_IN, Literal(3)), input: "x", err: ErrWriteTarget,
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal([]uint16{'x'}, mock.Input) }},
		{name: "noop", ins: MakeInstruction(OP_NOOP),
			check: func(cpu *Cpu, mock *io.Mock) { assert.Equal(uint16(10), cpu.Pc) }},
		{name: "halt", ins: MakeInstruction(OP_HALT), err: ErrHalted,
			check: func(cpu *Cpu, mock *io.Mock) {
				assert.Equal(uint16(10), cpu.Pc)
				assert.Equal(1, mock.Halts)
				assert.True(mock.Halted)
			}},
	}

	for _, entry := range table {
		cpu := NewCpu()
		cpu.Pc = 10
		if entry.setup != nil {
			entry.setup(cpu)
		}
		mock := io.NewMock(entry.input)

		err := cpu.Execute(entry.ins, mock)
		if entry.err != nil {
			assert.ErrorIs(err, entry.err, entry.name)
			if !errors.Is(entry.err, ErrHalted) {
				assert.ErrorIs(err, ErrInstruction{}, entry.name)
			}
		} else {
			assert.NoError(err, entry.name)
		}
		if entry.check != nil {
			entry.check(cpu, mock)
		}
		assert.Equal(entry.output, mock.Output(), entry.name)
		assert.Equal(1, cpu.Ticks, entry.name)
	}
}

func TestCpu_Execute_Not(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	mock := &io.Mock{}
	for x := uint16(0); x <= VALUE_MASK; x += 37 {
		cpu.Register[1] = x
		assert.NoError(cpu.Execute(MakeInstruction(OP_NOT, Register(0), Register(1)), mock))
		assert.NoError(cpu.Execute(MakeInstruction(OP_NOT, Register(2), Register(0)), mock))
		assert.Equal(x, cpu.Register[2])
		assert.LessOrEqual(cpu.Register[0], uint16(VALUE_MASK))
	}
}

func TestCpu_Execute_Closure(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	mock := &io.Mock{}
	values := []uint16{0, 1, 2, 255, 16384, 32766, 32767}
	for _, b := range values {
		for _, c := range values {
			for _, op := range []Opcode{OP_ADD, OP_MULT, OP_MOD, OP_AND, OP_OR} {
				ins := MakeInstruction(op, Register(0), Literal(b), Literal(c))
				err := cpu.Execute(ins, mock)
				if op == OP_MOD && c == 0 {
					assert.ErrorIs(err, ErrDivideByZero)
					continue
				}
				assert.NoError(err, ins.String())
				assert.LessOrEqual(cpu.Register[0], uint16(VALUE_MASK), ins.String())
			}
		}
	}
}

// assemble assembles source, and loads it into a new Cpu.
func assemble(t *testing.T, source ...string) (cpu *Cpu) {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(source, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	cpu = NewCpu()
	err = cpu.Load(prog)
	if err != nil {
		t.Fatal(err)
	}

	return
}

// run ticks the cpu until it halts, or fails.
func run(cpu *Cpu, sink Sink) (err error) {
	for range 100000 {
		err = cpu.Tick(sink)
		if err != nil {
			return
		}
	}

	return
}

func TestCpu_Tick(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source []string
		input  string
		output string
		check  func(cpu *Cpu)
	}){
		{name: "hello", source: []string{
			"out 'h'",
			"out 'i'",
			"out '\\n'",
			"halt",
		}, output: "hi\n"},
		{name: "call-ret", source: []string{
			"    call sub",
			"    out 'b'",
			"    halt",
			"sub:",
			"    out 'a'",
			"    ret",
		}, output: "ab", check: func(cpu *Cpu) { assert.True(cpu.Stack.Empty()) }},
		{name: "loop", source: []string{
			"      set r0 0",
			"loop: add r0 r0 1",
			"      eq r1 r0 5",
			"      jf r1 loop",
			"      out 'd'",
			"      halt",
		}, output: "d", check: func(cpu *Cpu) { assert.Equal(uint16(5), cpu.Register[0]) }},
		{name: "echo", source: []string{
			"in r0",
			"out r0",
			"in r0",
			"out r0",
			"halt",
		}, input: "ok", output: "ok"},
		{name: "ret-halts", source: []string{
			"push 'x'",
			"pop r7",
			"out r7",
			"ret",
		}, output: "x"},
	}

	for _, entry := range table {
		cpu := assemble(t, entry.source...)
		mock := io.NewMock(entry.input)

		err := run(cpu, mock)
		assert.ErrorIs(err, ErrHalted, entry.name)
		assert.Equal(entry.output, mock.Output(), entry.name)
		assert.Equal(1, mock.Halts, entry.name)
		if entry.check != nil {
			entry.check(cpu)
		}
	}
}

func TestCpu_Tick_Wmem(t *testing.T) {
	assert := assert.New(t)

	// Overwrite the 'out' operand before it is fetched.
	cpu := assemble(t,
		"       jmp start",
		"char:  out 'N'",
		"       halt",
		"start: wmem $(char+1) 'Y'",
		"       jmp char",
	)
	mock := &io.Mock{}

	err := run(cpu, mock)
	assert.ErrorIs(err, ErrHalted)
	assert.Equal("Y", mock.Output())
}

func TestCpu_Tick_Fatal(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Memory[0] = 22
	err := cpu.Tick(&io.Mock{})
	assert.ErrorIs(err, ErrOpcode(0))

	cpu.Reset()
	cpu.Pc = VALUE_MASK
	cpu.Memory[VALUE_MASK] = uint16(OP_OUT)
	err = cpu.Tick(&io.Mock{})
	assert.ErrorIs(err, ErrOperandMissing)

	cpu.Reset()
	cpu.Register[0] = 40000
	cpu.Memory[0] = uint16(OP_JMP)
	cpu.Memory[1] = REGISTER_BASE
	assert.NoError(cpu.Tick(&io.Mock{}))
	err = cpu.Tick(&io.Mock{})
	assert.ErrorIs(err, ErrAddress(0))
}

func TestCpu_Load(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Pc = 99
	cpu.Register[3] = 4
	cpu.Stack.Push(1)
	cpu.Memory[1000] = 1

	err := cpu.Load(&Program{Words: []uint16{19, 65, 0}})
	assert.NoError(err)
	assert.Equal(uint16(0), cpu.Pc)
	assert.Equal([REGISTER_COUNT]uint16{}, cpu.Register)
	assert.True(cpu.Stack.Empty())
	assert.Equal(uint16(0), cpu.Memory[1000])
	assert.Equal([]uint16{19, 65, 0}, cpu.Memory[:3])

	err = cpu.Load(&Program{Words: make([]uint16, MEMORY_SIZE+1)})
	assert.ErrorIs(err, ErrImageTooLarge)
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[2] = 17
	text := cpu.String()
	assert.Contains(text, "   pc: 0\n")
	assert.Contains(text, "   r2: 17\n")
	assert.Contains(text, "stack: -----\n")

	cpu.Stack.Push(5)
	assert.Contains(cpu.String(), "stack: 5 (1 deep)\n")
}
