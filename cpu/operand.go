package cpu

import (
	"fmt"
)

// Operand is a decoded instruction argument: either a literal in
// 0..32767, or a reference to one of the eight registers.
//
// The zero value is the literal 0.
type Operand struct {
	word uint16
}

// OperandOf decodes a raw operand word.
func OperandOf(word uint16) (op Operand, err error) {
	if word >= REGISTER_LIMIT {
		err = ErrOperand(word)
		return
	}

	op = Operand{word: word}
	return
}

// Literal returns a literal operand. The value is reduced modulo 32768.
func Literal(value uint16) Operand {
	return Operand{word: value & VALUE_MASK}
}

// Register returns a reference to register n, which must be in 0..7.
func Register(n int) Operand {
	if n < 0 || n >= REGISTER_COUNT {
		panic(fmt.Sprintf("register r%d out of range", n))
	}
	return Operand{word: REGISTER_BASE + uint16(n)}
}

// IsRegister returns true if the operand refers to a register.
func (op Operand) IsRegister() bool {
	return op.word >= REGISTER_BASE
}

// Register returns the register index, or -1 for a literal.
func (op Operand) Register() int {
	if !op.IsRegister() {
		return -1
	}
	return int(op.word - REGISTER_BASE)
}

// Literal returns the literal value. Only meaningful if !IsRegister().
func (op Operand) Literal() uint16 {
	return op.word & VALUE_MASK
}

// Word returns the operand's memory encoding.
func (op Operand) Word() uint16 {
	return op.word
}

// String returns the assembly language representation of the operand.
func (op Operand) String() string {
	if op.IsRegister() {
		return fmt.Sprintf("r%d", op.Register())
	}
	return fmt.Sprintf("%d", op.word)
}
