// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":         "0",
	"MEMORY_SIZE":    fmt.Sprintf("%d", MEMORY_SIZE),
	"VALUE_MODULUS":  fmt.Sprintf("%d", VALUE_MODULUS),
	"VALUE_MASK":     fmt.Sprintf("%d", VALUE_MASK),
	"REGISTER_BASE":  fmt.Sprintf("%d", REGISTER_BASE),
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
}

var (
	reCharacter  = regexp.MustCompile(`'(\\.|[^'\\])'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// link is a word that refers to a label, resolved once all labels are known.
type link struct {
	index   int    // Index of the word in the image.
	label   string // Label to resolve.
	operand bool   // Set if the word must be a literal operand.
}

// Assembler is a single pass assembler for the VM's instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Words   []uint16 // Generated program words.
	Lines   []Line   // Source lines that generated words.

	predefine map[string]string // Predefines
	Label     map[string]uint16 // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
	links     []link            // Words waiting on a label.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// registerOf returns the register index named by word.
func registerOf(word string) (n int, ok bool) {
	if len(word) != 2 || word[0] != 'r' || word[1] < '0' || word[1] >= '0'+REGISTER_COUNT {
		return
	}

	n = int(word[1] - '0')
	ok = true
	return
}

// valueOf returns the value of a simple number.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}
	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// isNumber returns true if the word should be parsed as a number.
func isNumber(word string) bool {
	return word[0] == '-' || word[0] == '\'' || (word[0] >= '0' && word[0] <= '9')
}

// wordOf returns the encoding of a single operand word. Labels are linked
// after the whole source is read.
func (asm *Assembler) wordOf(word string, limit int64) (value uint16, label string, err error) {
	reg, ok := registerOf(word)
	if ok {
		value = REGISTER_BASE + uint16(reg)
		return
	}

	if isNumber(word) {
		var v64 int64
		v64, err = asm.valueOf(word)
		if err != nil {
			return
		}
		if v64 < 0 || v64 > limit {
			err = ErrParseNumber(word)
			return
		}
		value = uint16(v64)
		return
	}

	if !reLabel.MatchString(word) {
		err = ErrParseValue(word)
		return
	}

	label = word
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// unquote returns the value of a quoted character.
func unquote(quoted string) (value rune, ok bool) {
	str := quoted[1 : len(quoted)-1]
	if str[0] == '\\' {
		switch str[1:] {
		case "\\":
			value = '\\'
		case "'":
			value = '\''
		case "n":
			value = '\n'
		case "r":
			value = '\r'
		case "t":
			value = '\t'
		case "e":
			value = '\033'
		case "0":
			value = 0
		default:
			return
		}
		ok = true
		return
	}

	value, _ = utf8.DecodeRuneInString(str)
	ok = value != utf8.RuneError && value <= VALUE_MASK
	return
}

// parseLine parses a single line into words, handling equates and labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !reLabel.MatchString(label) {
			err = ErrParseValue(label)
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = uint16(len(asm.Words))
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// emit appends a word, or a link to a label.
func (asm *Assembler) emit(value uint16, label string, operand bool) {
	if len(label) > 0 {
		asm.links = append(asm.links, link{index: len(asm.Words), label: label, operand: operand})
	}
	asm.Words = append(asm.Words, value)
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	if words[0] == ".word" {
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			var value uint16
			var label string
			value, label, err = asm.wordOf(word, 0xffff)
			if err != nil {
				return
			}
			asm.emit(value, label, false)
		}
		return
	}

	op, ok := OpcodeOf(words[0])
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]
	if len(args) < op.Arity() {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > op.Arity() {
		err = ErrOpcodeExtraArgs
		return
	}

	if op.Writes() {
		_, ok = registerOf(args[0])
		if !ok {
			err = ErrTargetInvalid
			return
		}
	}

	asm.emit(uint16(op), "", false)
	for _, arg := range args {
		var value uint16
		var label string
		value, label, err = asm.wordOf(arg, VALUE_MASK)
		if err != nil {
			return
		}
		asm.emit(value, label, true)
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Words = nil
	asm.Lines = nil
	asm.links = nil
	asm.Label = make(map[string]uint16, 16)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Debugf("%v: %v", lineno, text)
		}

		// Do 'x' evaluations, before a quoted ';' is seen as a comment.
		text = reCharacter.ReplaceAllStringFunc(text, func(quoted string) string {
			value, ok := unquote(quoted)
			if !ok {
				return quoted
			}
			return fmt.Sprintf("%d", value)
		})

		text_comment := strings.SplitN(text, ";", 2)
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		address := uint16(len(asm.Words))
		err = asm.parseWords(words)
		if err != nil {
			return
		}

		if len(asm.Words) > MEMORY_SIZE {
			err = ErrImageTooLarge
			return
		}

		size := uint16(len(asm.Words)) - address
		if size > 0 {
			asm.Lines = append(asm.Lines, Line{LineNo: lineno, Address: address, Size: size, Text: line})
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of labels; errors are reported against their line.
	for _, lnk := range asm.links {
		addr, ok := asm.Label[lnk.label]
		if !ok || (lnk.operand && addr > VALUE_MASK) {
			src, _ := (&Program{Lines: asm.Lines}).Debug(uint16(lnk.index))
			lineno, line = src.LineNo, src.Text
			if !ok {
				err = ErrLabelMissing(lnk.label)
			} else {
				err = ErrOperand(addr)
			}
			return
		}
		asm.Words[lnk.index] = addr
	}

	prog = &Program{
		Words:  asm.Words,
		Labels: maps.Clone(asm.Label),
		Lines:  asm.Lines,
	}

	return
}

// ParseInstruction assembles a single instruction.
func ParseInstruction(text string) (ins Instruction, err error) {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(text))
	if err != nil {
		var syntax_err *ErrSyntax
		if errors.As(err, &syntax_err) {
			err = syntax_err.Err
		}
		return
	}

	ins, size, err := Decode(prog.Words, 0)
	if err != nil || int(size) != len(prog.Words) {
		ins = Instruction{}
		err = ErrInstructionInvalid
		return
	}

	return
}
