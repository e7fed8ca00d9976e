// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/ezrec/synvm/config"
	"github.com/ezrec/synvm/cpu"
	"github.com/ezrec/synvm/debugger"
	"github.com/ezrec/synvm/emulator"
	vmio "github.com/ezrec/synvm/io"
)

const (
	EXIT_HALTED  = 0
	EXIT_RUNTIME = 1
	EXIT_USAGE   = 2
)

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(int(*v))
}

func (v *verbosity) Set(string) error {
	*v++
	return nil
}

func (v *verbosity) IsBoolFlag() bool {
	return true
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %v [flags] [run|debug|dump]\n", os.Args[0])
	fmt.Fprintf(out, "       %v [flags] asm <source.asm> <image.bin>\n", os.Args[0])
	flag.PrintDefaults()
}

// loadImage reads a program image. Files ending in .asm are assembled.
func loadImage(path string, verbose bool) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	if filepath.Ext(path) == ".asm" {
		asm := &cpu.Assembler{Verbose: verbose}
		prog, err = asm.Parse(inf)
	} else {
		prog, err = cpu.LoadProgram(inf)
	}
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}

	return
}

// assemble writes the binary image of an assembly source file.
func assemble(source string, image string, verbose bool) (err error) {
	prog, err := loadImage(source, verbose)
	if err != nil {
		return
	}

	err = os.WriteFile(image, prog.Binary(), 0644)
	return
}

// dumpImage writes the disassembly of the whole memory, with prog loaded.
func dumpImage(w io.Writer, prog *cpu.Program) (err error) {
	c := cpu.NewCpu()
	err = c.Load(prog)
	if err != nil {
		return
	}

	err = cpu.Dump(w, c.Memory[:])
	return
}

// execute runs the loaded program in mode. Both modes fetch through the
// debugger, so the configured patches apply; only 'debug' has a shell.
func execute(mode string, conf *config.Config, emu *emulator.Emulator, input io.Reader, output io.Writer, prompt bool) (err error) {
	dbg := debugger.NewDebugger(input, output)
	dbg.Prompt = prompt
	err = conf.Apply(dbg)
	if err != nil {
		return
	}

	switch mode {
	case "run":
		err = dbg.Run(emu)
	case "debug":
		err = dbg.Debug(emu)
		if errors.Is(err, debugger.ErrQuit) {
			err = nil
		}
	default:
		err = fmt.Errorf("unknown mode: %v", mode)
	}

	return
}

func main() {
	var image string
	var conf_path string
	var replay string
	var verbose verbosity

	flag.StringVar(&image, "i", "", "Program image (.bin, or .asm source)")
	flag.StringVar(&conf_path, "c", "", "Configuration file (synvm.toml)")
	flag.StringVar(&replay, "r", "", "Replay log of console input")
	flag.Var(&verbose, "v", "Verbose mode (repeat for more)")
	flag.Usage = usage

	flag.Parse()

	conf := config.Default()
	if len(conf_path) != 0 {
		var err error
		conf, err = config.Load(conf_path)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	if len(image) != 0 {
		conf.Image = image
	}
	if len(replay) != 0 {
		conf.Replay = replay
	}
	if verbose != 0 {
		conf.Verbose = int(verbose)
	}

	commonlog.Configure(conf.Verbose, nil)

	mode := "run"
	args := flag.Args()
	if len(args) != 0 {
		mode, args = args[0], args[1:]
	}

	verbose_trace := conf.Verbose > 1

	if mode == "asm" {
		if len(args) != 2 {
			usage()
			os.Exit(EXIT_USAGE)
		}
		err := assemble(args[0], args[1], verbose_trace)
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if len(args) != 0 {
		log.Printf("%v: Unknown arguments: %v", os.Args[0], args)
		usage()
		os.Exit(EXIT_USAGE)
	}

	if len(conf.Image) == 0 {
		log.Printf("%v: no program image; use -i or a configuration file", os.Args[0])
		usage()
		os.Exit(EXIT_USAGE)
	}

	prog, err := loadImage(conf.Image, verbose_trace)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if mode == "dump" {
		err = dumpImage(os.Stdout, prog)
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if mode != "run" && mode != "debug" {
		log.Printf("%v: Unknown mode: %v", os.Args[0], mode)
		usage()
		os.Exit(EXIT_USAGE)
	}

	// The program and the debugger shell share standard input.
	stdin := bufio.NewReader(os.Stdin)

	var sink vmio.Sink
	if len(conf.Replay) != 0 {
		rep := vmio.NewReplay(conf.Replay, stdin, os.Stdout)
		rep.Verbose = verbose_trace
		sink = rep
	} else {
		sink = &vmio.Console{Input: stdin, Output: os.Stdout}
	}

	emu := emulator.NewEmulator(sink)
	emu.Verbose = verbose_trace
	err = emu.Load(prog)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = execute(mode, conf, emu, stdin, os.Stdout, vmio.IsTerminal(os.Stdin.Fd()))

	close_err := emu.Close()
	if err == nil {
		err = close_err
	}

	if err != nil {
		log.Printf("%v", err)
		os.Exit(EXIT_RUNTIME)
	}

	os.Exit(EXIT_HALTED)
}
