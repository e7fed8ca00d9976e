package debugger

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/synvm/cpu"
	"github.com/ezrec/synvm/emulator"
)

const (
	DIS_COUNT = 10 // Default instructions listed by 'dis'.
	MEM_COUNT = 16 // Default words listed by 'mem'.
	MEM_WIDTH = 4  // Words per line listed by 'mem'.
)

// command is a shell command. A command that returns resume leaves the
// shell, and execution continues.
type command struct {
	names []string
	usage string
	help  string
	fn    func(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error)
}

// commands is the shell command table; 'help' and 'quit' are handled by the
// shell itself.
var commands = []command{
	{[]string{"s", "step"}, "s", "execute one instruction, then return here", cmdStep},
	{[]string{"g", "go", "c"}, "g", "resume free-running execution", cmdGo},
	{[]string{"trace"}, "trace", "resume, printing every instruction", cmdTrace},
	{[]string{"regs", "r"}, "regs", "print pc, registers and stack top", cmdRegs},
	{[]string{"set"}, "set pc|reg<N>|<addr> <value>", "set pc, a register or a memory word", cmdSet},
	{[]string{"bp", "b"}, "bp [<addr>...]", "list breakpoints, or toggle each address", cmdBreakpoint},
	{[]string{"patch"}, "patch [<addr> [<instruction>]]", "list, remove or install a patch", cmdPatch},
	{[]string{"dis"}, "dis [<addr> [<count>]]", "disassemble memory, '*' marks patches", cmdDisassemble},
	{[]string{"mem"}, "mem [<addr> [<count>]]", "print memory words", cmdMemory},
	{[]string{"stack"}, "stack", "print the stack, top first", cmdStack},
	{[]string{"save"}, "save <file>", "save a machine snapshot", cmdSave},
	{[]string{"load"}, "load <file>", "restore a machine snapshot", cmdLoad},
}

// lookup finds the command named name.
func lookup(name string) (cmd *command, ok bool) {
	for n := range commands {
		if slices.Contains(commands[n].names, name) {
			cmd = &commands[n]
			ok = true
			return
		}
	}

	return
}

// Shell reads and performs operator commands until one resumes execution.
// Returns ErrQuit when the operator quits, or their input ends.
func (dbg *Debugger) Shell(emu *emulator.Emulator) (err error) {
	for {
		if dbg.Prompt {
			fmt.Fprint(dbg.Output, "# ")
		}

		var line string
		line, err = dbg.Input.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				err = ErrQuit
				return
			}
			err = nil
		}
		if err != nil {
			return
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		name, args := words[0], words[1:]

		if dbg.Verbose {
			log.Debugf("shell: %v", words)
		}

		switch name {
		case "q", "quit":
			err = ErrQuit
			return
		case "help", "h", "?":
			dbg.help()
			continue
		}

		cmd, ok := lookup(name)
		if !ok {
			fmt.Fprintln(dbg.Output, ErrCommand(name))
			continue
		}

		resume, cmd_err := cmd.fn(dbg, emu, args)
		if cmd_err != nil {
			fmt.Fprintln(dbg.Output, cmd_err)
			continue
		}

		if resume {
			return
		}
	}
}

// help lists the shell commands.
func (dbg *Debugger) help() {
	for _, cmd := range commands {
		fmt.Fprintf(dbg.Output, "  %-32s %v\n", cmd.usage, cmd.help)
	}
	fmt.Fprintf(dbg.Output, "  %-32s %v\n", "help", f("this list"))
	fmt.Fprintf(dbg.Output, "  %-32s %v\n", "q", f("quit the debugger"))
}

// parseWord parses a shell integer in any Go base prefix.
func parseWord(arg string) (value uint16, err error) {
	v64, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		err = ErrNumber(arg)
		return
	}

	value = uint16(v64)
	return
}

// parseAddress parses a memory address.
func parseAddress(arg string) (address uint16, err error) {
	address, err = parseWord(arg)
	if err != nil {
		return
	}

	if address >= cpu.MEMORY_SIZE {
		err = cpu.ErrAddress(address)
		return
	}

	return
}

// parseRange parses the optional [addr [count]] arguments.
func parseRange(args []string, address uint16, count uint16, usage string) (uint16, uint16, error) {
	var err error
	if len(args) > 2 {
		return 0, 0, ErrUsage(usage)
	}
	if len(args) > 0 {
		address, err = parseAddress(args[0])
		if err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 {
		count, err = parseWord(args[1])
		if err != nil {
			return 0, 0, err
		}
	}

	return address, count, nil
}

// registerIndex parses a register name, reg<N> or r<N>.
func registerIndex(target string) (n int, ok bool) {
	digits, found := strings.CutPrefix(target, "reg")
	if !found {
		digits = target[1:]
	}

	n, err := strconv.Atoi(digits)
	ok = err == nil && n >= 0 && n < cpu.REGISTER_COUNT
	return
}

func cmdStep(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	dbg.SingleStep = true
	resume = true
	return
}

func cmdGo(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	dbg.SingleStep = false
	resume = true
	return
}

func cmdTrace(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	dbg.SingleStep = false
	dbg.Trace = true
	resume = true
	return
}

func cmdRegs(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	fmt.Fprint(dbg.Output, emu.Cpu.String())
	return
}

func cmdSet(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	const usage = "set pc|reg<N>|<addr> <value>"

	if len(args) != 2 {
		err = ErrUsage(usage)
		return
	}

	target := args[0]
	value, err := parseWord(args[1])
	if err != nil {
		return
	}

	c := emu.Cpu

	switch {
	case target == "pc":
		if value > cpu.VALUE_MASK {
			err = ErrValue(value)
			return
		}
		c.Pc = value
	case strings.HasPrefix(target, "r"):
		n, ok := registerIndex(target)
		if !ok {
			err = ErrRegister(target)
			return
		}
		if value > cpu.VALUE_MASK {
			err = ErrValue(value)
			return
		}
		c.Register[n] = value
	default:
		var address uint16
		address, err = parseAddress(target)
		if err != nil {
			return
		}
		c.Memory[address] = value
	}

	return
}

func cmdBreakpoint(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	if len(args) == 0 {
		if len(dbg.Breakpoints) == 0 {
			err = ErrNoBreakpoints
			return
		}
		for _, address := range slices.Sorted(maps.Keys(dbg.Breakpoints)) {
			fmt.Fprintf(dbg.Output, "%d\n", address)
		}
		return
	}

	// All addresses must parse before any are toggled.
	var addresses []uint16
	for _, arg := range args {
		var address uint16
		address, err = parseAddress(arg)
		if err != nil {
			return
		}
		addresses = append(addresses, address)
	}

	for _, address := range addresses {
		if dbg.ToggleBreakpoint(address) {
			fmt.Fprintln(dbg.Output, f("breakpoint set at %d", address))
		} else {
			fmt.Fprintln(dbg.Output, f("breakpoint cleared at %d", address))
		}
	}

	return
}

func cmdPatch(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	if len(args) == 0 {
		if len(dbg.Patches) == 0 {
			err = ErrNoPatches
			return
		}
		for _, address := range slices.Sorted(maps.Keys(dbg.Patches)) {
			fmt.Fprintf(dbg.Output, "%d: %v\n", address, dbg.Patches[address])
		}
		return
	}

	address, err := parseAddress(args[0])
	if err != nil {
		return
	}

	if len(args) == 1 {
		_, ok := dbg.Patches[address]
		if !ok {
			err = ErrNoPatch(address)
			return
		}
		delete(dbg.Patches, address)
		fmt.Fprintln(dbg.Output, f("patch removed at %d", address))
		return
	}

	ins, err := cpu.ParseInstruction(strings.Join(args[1:], " "))
	if err != nil {
		return
	}

	if dbg.Patches == nil {
		dbg.Patches = map[uint16]cpu.Instruction{}
	}
	dbg.Patches[address] = ins
	fmt.Fprintln(dbg.Output, f("patch installed at %d: %v", address, ins))

	return
}

func cmdDisassemble(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	c := emu.Cpu

	address, count, err := parseRange(args, c.Pc, DIS_COUNT, "dis [<addr> [<count>]]")
	if err != nil {
		return
	}

	listed := uint16(0)
	for lst := range cpu.Disassemble(c.Memory[:], address) {
		if listed >= count {
			break
		}
		listed++

		mark := " "
		if lst.Address == c.Pc {
			mark = ">"
		}
		patch, patched := dbg.Patches[lst.Address]
		switch {
		case lst.Err != nil:
			fmt.Fprintf(dbg.Output, "%s %5d: ?? %d\n", mark, lst.Address, c.Memory[lst.Address])
		case patched:
			fmt.Fprintf(dbg.Output, "%s*%5d: %v\n", mark, lst.Address, patch)
		default:
			fmt.Fprintf(dbg.Output, "%s %5d: %v\n", mark, lst.Address, lst.Instruction)
		}
	}

	return
}

func cmdMemory(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	c := emu.Cpu

	address, count, err := parseRange(args, c.Pc, MEM_COUNT, "mem [<addr> [<count>]]")
	if err != nil {
		return
	}

	end := min(int(address)+int(count), cpu.MEMORY_SIZE)
	for addr := int(address); addr < end; addr += MEM_WIDTH {
		fmt.Fprintf(dbg.Output, "%5d:", addr)
		for n := addr; n < min(addr+MEM_WIDTH, end); n++ {
			fmt.Fprintf(dbg.Output, " %5d", c.Memory[n])
		}
		fmt.Fprintln(dbg.Output)
	}

	return
}

func cmdStack(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	data := emu.Cpu.Stack.Data
	if len(data) == 0 {
		fmt.Fprintln(dbg.Output, f("stack empty"))
		return
	}

	for n := len(data) - 1; n >= 0; n-- {
		fmt.Fprintf(dbg.Output, "%5d: %d\n", len(data)-1-n, data[n])
	}

	return
}

func cmdSave(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	if len(args) != 1 {
		err = ErrUsage("save <file>")
		return
	}

	file, err := os.Create(args[0])
	if err != nil {
		return
	}

	err = emu.Cpu.SaveSnapshot(file)
	close_err := file.Close()
	if err == nil {
		err = close_err
	}
	if err != nil {
		return
	}

	fmt.Fprintln(dbg.Output, f("saved %v at pc %d", args[0], emu.Cpu.Pc))
	return
}

func cmdLoad(dbg *Debugger, emu *emulator.Emulator, args []string) (resume bool, err error) {
	if len(args) != 1 {
		err = ErrUsage("load <file>")
		return
	}

	file, err := os.Open(args[0])
	if err != nil {
		return
	}
	defer file.Close()

	err = emu.Cpu.LoadSnapshot(file)
	if err != nil {
		return
	}

	fmt.Fprintln(dbg.Output, f("loaded %v at pc %d", args[0], emu.Cpu.Pc))
	dbg.printListing(emu.Cpu, emu.Cpu.Pc)
	return
}
