// Package config loads synvm.toml run configuration.
package config

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/ezrec/synvm/cpu"
	"github.com/ezrec/synvm/debugger"
)

var log = commonlog.GetLogger("synvm.config")

// Config is a synvm.toml file.
type Config struct {
	Image    string   `toml:"image"`   // Program image, binary or .asm source.
	Replay   string   `toml:"replay"`  // Replay log path; empty for live input.
	Verbose  int      `toml:"verbose"` // Log verbosity.
	Debugger Debugger `toml:"debugger"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Debugger is the [debugger] table.
type Debugger struct {
	BreakOnExhaust   bool              `toml:"break-on-exhaust"`
	Trace            bool              `toml:"trace"`
	Breakpoints      []uint16          `toml:"breakpoints"`
	NoDefaultPatches bool              `toml:"no-default-patches"`
	Patches          map[string]string `toml:"patches"`
}

// Default returns the configuration used when no file is given.
func Default() (conf *Config) {
	conf = &Config{
		Debugger: Debugger{
			BreakOnExhaust: true,
		},
	}
	return
}

// Load reads a configuration file over the defaults. Relative image and
// replay paths are resolved against the file's directory.
func Load(path string) (conf *Config, err error) {
	conf = Default()

	meta, err := toml.DecodeFile(path, conf)
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
		conf = nil
		return
	}

	undecoded := meta.Undecoded()
	if len(undecoded) != 0 {
		err = fmt.Errorf("%v: %w: %v", path, ErrKeyUnknown, undecoded[0])
		conf = nil
		return
	}

	conf.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		conf = nil
		return
	}

	conf.Image = conf.resolve(conf.Image)
	conf.Replay = conf.resolve(conf.Replay)

	for _, address := range conf.Debugger.Breakpoints {
		if address >= cpu.MEMORY_SIZE {
			err = fmt.Errorf("%v: breakpoints: %w", path, cpu.ErrAddress(address))
			conf = nil
			return
		}
	}

	log.Debugf("loaded %v", path)

	return
}

func (conf *Config) resolve(path string) string {
	if len(path) == 0 || filepath.IsAbs(path) || len(conf.Dir) == 0 {
		return path
	}

	return filepath.Join(conf.Dir, path)
}

// Patches assembles the [debugger.patches] table.
func (conf *Config) Patches() (patches map[uint16]cpu.Instruction, err error) {
	patches = map[uint16]cpu.Instruction{}

	for _, key := range slices.Sorted(maps.Keys(conf.Debugger.Patches)) {
		text := conf.Debugger.Patches[key]

		v64, parse_err := strconv.ParseUint(key, 0, 16)
		if parse_err != nil || v64 >= cpu.MEMORY_SIZE {
			err = errors.Join(err, ErrPatchAddress(key))
			continue
		}
		address := uint16(v64)

		ins, ins_err := cpu.ParseInstruction(text)
		if ins_err != nil {
			err = errors.Join(err, &ErrPatch{Address: address, Text: text, Err: ins_err})
			continue
		}

		patches[address] = ins
	}

	if err != nil {
		patches = nil
	}

	return
}

// Apply configures the debugger. Breakpoints are added to any already set,
// and configured patches override the defaults unless they are disabled.
func (conf *Config) Apply(dbg *debugger.Debugger) (err error) {
	patches, err := conf.Patches()
	if err != nil {
		return
	}

	dbg.Verbose = conf.Verbose > 1
	dbg.BreakOnExhaust = conf.Debugger.BreakOnExhaust
	dbg.Trace = conf.Debugger.Trace

	for _, address := range conf.Debugger.Breakpoints {
		if !dbg.Breakpoints[address] {
			dbg.ToggleBreakpoint(address)
		}
	}

	if conf.Debugger.NoDefaultPatches {
		dbg.SetPatches(patches)
	} else {
		merged := debugger.DefaultPatches()
		maps.Copy(merged, patches)
		dbg.SetPatches(merged)
	}

	return
}
