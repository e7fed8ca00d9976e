package cpu

import (
	"errors"

	"github.com/ezrec/synvm/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted          = errors.New(f("halted"))
	ErrStackEmpty      = errors.New(f("stack empty"))
	ErrWriteTarget     = errors.New(f("write target is not a register"))
	ErrDivideByZero    = errors.New(f("modulus by zero"))
	ErrInputInvalid    = errors.New(f("input is not a value"))
	ErrSnapshotInvalid = errors.New(f("snapshot invalid"))
	ErrImageTruncated  = errors.New(f("program image has an odd byte count"))
	ErrImageTooLarge   = errors.New(f("program image exceeds memory"))

	// Instruction decode errors
	ErrOperandMissing = errors.New(f("operand missing"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrTargetInvalid      = errors.New(f("target invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrAddress is an instruction fetch outside of the address space.
type ErrAddress uint

func (ea ErrAddress) Error() string {
	return f("address %d out of range", uint(ea))
}

func (ea ErrAddress) Is(err error) (ok bool) {
	_, ok = err.(ErrAddress)
	return
}

// ErrOpcode is an unknown opcode word.
type ErrOpcode uint16

func (eo ErrOpcode) Error() string {
	return f("unknown opcode %d", uint16(eo))
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrOperand is an operand word that is neither a literal nor a register.
type ErrOperand uint16

func (eo ErrOperand) Error() string {
	return f("invalid operand %d", uint16(eo))
}

func (eo ErrOperand) Is(err error) (ok bool) {
	_, ok = err.(ErrOperand)
	return
}

// ErrCharacter is an output value that is not a Unicode code point.
type ErrCharacter uint16

func (ec ErrCharacter) Error() string {
	return f("value %d is not a character", uint16(ec))
}

func (ec ErrCharacter) Is(err error) (ok bool) {
	_, ok = err.(ErrCharacter)
	return
}

// ErrInstruction identifies the instruction that failed to execute.
type ErrInstruction Instruction

func (ei ErrInstruction) Error() string {
	return f("bad instruction '%v'", Instruction(ei).String())
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("'%v' is not a value or register", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
