// Package cpu implements the processor, decoder and assembler for the synvm
// architecture.
//
// The machine has a 15-bit address space of 32768 16-bit words, eight
// registers (r0-r7) and an unbounded stack. Every operand word is either a
// literal in 0..32767 or a reference to one of the registers (32768..32775).
// All arithmetic is performed modulo 32768.
//
// The assembler provides a line-oriented assembly language for the
// instruction set, supporting labels, equates, raw words, character literals
// and compile-time expression evaluation.
package cpu
