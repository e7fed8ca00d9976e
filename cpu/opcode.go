package cpu

import (
	"strings"
)

// Opcode is an instruction opcode word.
type Opcode uint16

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_HALT = Opcode(0)  // halt
	OP_SET  = Opcode(1)  // set
	OP_PUSH = Opcode(2)  // push
	OP_POP  = Opcode(3)  // pop
	OP_EQ   = Opcode(4)  // eq
	OP_GT   = Opcode(5)  // gt
	OP_JMP  = Opcode(6)  // jmp
	OP_JT   = Opcode(7)  // jt
	OP_JF   = Opcode(8)  // jf
	OP_ADD  = Opcode(9)  // add
	OP_MULT = Opcode(10) // mult
	OP_MOD  = Opcode(11) // mod
	OP_AND  = Opcode(12) // and
	OP_OR   = Opcode(13) // or
	OP_NOT  = Opcode(14) // not
	OP_RMEM = Opcode(15) // rmem
	OP_WMEM = Opcode(16) // wmem
	OP_CALL = Opcode(17) // call
	OP_RET  = Opcode(18) // ret
	OP_OUT  = Opcode(19) // out
	OP_IN   = Opcode(20) // in
	OP_NOOP = Opcode(21) // noop

	OP_COUNT = 22 // Number of defined opcodes.
)

// MAX_ARITY is the largest number of operands any opcode takes.
const MAX_ARITY = 3

// opArity is the number of operand words following each opcode.
var opArity = [OP_COUNT]int{
	OP_HALT: 0,
	OP_SET:  2,
	OP_PUSH: 1,
	OP_POP:  1,
	OP_EQ:   3,
	OP_GT:   3,
	OP_JMP:  1,
	OP_JT:   2,
	OP_JF:   2,
	OP_ADD:  3,
	OP_MULT: 3,
	OP_MOD:  3,
	OP_AND:  3,
	OP_OR:   3,
	OP_NOT:  2,
	OP_RMEM: 2,
	OP_WMEM: 2,
	OP_CALL: 1,
	OP_RET:  0,
	OP_OUT:  1,
	OP_IN:   1,
	OP_NOOP: 0,
}

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	return op < OP_COUNT
}

// Arity returns the number of operands taken by the opcode.
func (op Opcode) Arity() int {
	if !op.Valid() {
		return 0
	}
	return opArity[op]
}

// Writes returns true if the first operand of the opcode is a write target.
func (op Opcode) Writes() bool {
	switch op {
	case OP_SET, OP_POP, OP_EQ, OP_GT, OP_ADD, OP_MULT, OP_MOD,
		OP_AND, OP_OR, OP_NOT, OP_RMEM, OP_IN:
		return true
	}
	return false
}

// OpcodeOf returns the opcode with the given mnemonic.
func OpcodeOf(name string) (op Opcode, ok bool) {
	for n := range OP_COUNT {
		op = Opcode(n)
		if op.String() == name {
			ok = true
			return
		}
	}
	op = 0
	return
}

// Instruction is a decoded instruction. Args beyond the opcode's arity are
// always the zero Operand, so instructions compare equal with ==.
type Instruction struct {
	Op   Opcode
	Args [MAX_ARITY]Operand
}

// MakeInstruction creates an instruction. Panics if the number of args does
// not match the opcode's arity.
func MakeInstruction(op Opcode, args ...Operand) (ins Instruction) {
	if !op.Valid() || len(args) != op.Arity() {
		panic("MakeInstruction: " + op.String() + " arity mismatch")
	}
	ins.Op = op
	copy(ins.Args[:], args)
	return
}

// Size returns the instruction's size in words, including the opcode.
func (ins Instruction) Size() uint16 {
	return 1 + uint16(ins.Op.Arity())
}

// Operands returns the used operands of the instruction.
func (ins Instruction) Operands() []Operand {
	return ins.Args[:ins.Op.Arity()]
}

// Words returns the memory encoding of the instruction.
func (ins Instruction) Words() (words []uint16) {
	words = append(words, uint16(ins.Op))
	for _, arg := range ins.Operands() {
		words = append(words, arg.Word())
	}
	return
}

// String returns the assembly language representation of this instruction.
func (ins Instruction) String() string {
	words := []string{ins.Op.String()}
	for _, arg := range ins.Operands() {
		words = append(words, arg.String())
	}
	return strings.Join(words, " ")
}

// Decode decodes the instruction at address in memory, returning the
// instruction and its size in words.
func Decode(memory []uint16, address uint16) (ins Instruction, size uint16, err error) {
	if int(address) >= len(memory) {
		err = ErrAddress(address)
		return
	}

	word := memory[address]
	op := Opcode(word)
	if !op.Valid() {
		err = ErrOpcode(word)
		return
	}

	ins.Op = op
	for n := range op.Arity() {
		addr := int(address) + 1 + n
		if addr >= len(memory) {
			err = ErrOperandMissing
			return
		}
		ins.Args[n], err = OperandOf(memory[addr])
		if err != nil {
			return
		}
	}

	size = ins.Size()
	return
}
