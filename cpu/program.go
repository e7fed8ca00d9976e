package cpu

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/ezrec/synvm/internal"
)

// DUMP_ELIDE_LIMIT is the longest run of identical instructions that Dump
// prints in full.
const DUMP_ELIDE_LIMIT = 3

// Line is the assembly source of a range of program words.
type Line struct {
	LineNo  int    // Source line number.
	Address uint16 // First word generated by the line.
	Size    uint16 // Number of words generated.
	Text    string // Source text, without comments.
}

// Program is a program image.
type Program struct {
	Words  []uint16          // Memory image, loaded at address 0.
	Labels map[string]uint16 // Labels, when assembled.
	Lines  []Line            // Source lines, when assembled.
}

// LoadProgram reads a little-endian program image.
func LoadProgram(r io.Reader) (prog *Program, err error) {
	reader := bufio.NewReader(r)

	var words []uint16
	var pair [2]byte
	for {
		var n int
		n, err = io.ReadFull(reader, pair[:])
		if errors.Is(err, io.EOF) {
			err = nil
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) && n == 1 {
			err = ErrImageTruncated
			return
		}
		if err != nil {
			return
		}
		if len(words) == MEMORY_SIZE {
			err = ErrImageTooLarge
			return
		}
		words = append(words, binary.LittleEndian.Uint16(pair[:]))
	}

	prog = &Program{Words: words}
	return
}

// Binary returns the little-endian program image.
func (prog *Program) Binary() (bin []byte) {
	bin = make([]byte, 0, len(prog.Words)*2)
	for _, word := range prog.Words {
		bin = binary.LittleEndian.AppendUint16(bin, word)
	}

	return
}

// Debug returns the source line that generated the word at address.
func (prog *Program) Debug(address uint16) (line Line, ok bool) {
	for _, line = range prog.Lines {
		if address >= line.Address && address < line.Address+line.Size {
			ok = true
			return
		}
	}

	line = Line{}
	return
}

// Listing is a single disassembled instruction.
type Listing struct {
	Address     uint16
	Instruction Instruction
	Size        uint16
	Err         error // Decode error; Size is 1.
}

// String returns the listing as 'address: instruction'.
func (lst Listing) String() string {
	if lst.Err != nil {
		return fmt.Sprintf("%d: ?? %v", lst.Address, lst.Err)
	}
	return fmt.Sprintf("%d: %v", lst.Address, lst.Instruction)
}

// Disassemble walks words from start, yielding every instruction. A word
// that does not decode is yielded with its error, and the walk resumes at
// the next word.
func Disassemble(words []uint16, start uint16) iter.Seq[Listing] {
	return func(yield func(Listing) bool) {
		for address := int(start); address < len(words); {
			ins, size, err := Decode(words, uint16(address))
			if err != nil {
				size = 1
			}
			if !yield(Listing{Address: uint16(address), Instruction: ins, Size: size, Err: err}) {
				return
			}
			address += int(size)
		}
	}
}

// Dump writes the disassembly of words to w. Undecodable words are
// skipped, and runs of identical instructions are elided.
func Dump(w io.Writer, words []uint16) (err error) {
	var decoded iter.Seq[Listing] = func(yield func(Listing) bool) {
		for lst := range Disassemble(words, 0) {
			if lst.Err != nil {
				continue
			}
			if !yield(lst) {
				return
			}
		}
	}

	key := func(lst Listing) Instruction { return lst.Instruction }
	groups := internal.IterSeqGroup(decoded, key)

	for lst := range internal.IterSeqElide(groups, DUMP_ELIDE_LIMIT, Listing{Size: 0}) {
		if lst.Size == 0 {
			_, err = fmt.Fprintln(w, "...")
		} else {
			_, err = fmt.Fprintln(w, lst)
		}
		if err != nil {
			return
		}
	}

	return
}
