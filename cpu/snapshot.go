package cpu

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is the canonical CBOR encoding, so equal machine states
// produce identical snapshot files.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cpu: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is a copy of the machine state.
type Snapshot struct {
	Pc       uint16                 `cbor:"1,keyasint"`
	Register [REGISTER_COUNT]uint16 `cbor:"2,keyasint"`
	Stack    []uint16               `cbor:"3,keyasint,omitempty"`
	Memory   []uint16               `cbor:"4,keyasint"`
}

// Validate returns an error if the snapshot cannot be a machine state.
func (snap *Snapshot) Validate() (err error) {
	if snap.Pc > VALUE_MASK {
		err = errors.Join(ErrSnapshotInvalid, ErrAddress(snap.Pc))
		return
	}

	for _, val := range snap.Register {
		if val > VALUE_MASK {
			err = errors.Join(ErrSnapshotInvalid, ErrOperand(val))
			return
		}
	}

	if len(snap.Memory) != MEMORY_SIZE {
		err = ErrSnapshotInvalid
		return
	}

	return
}

// Snapshot returns a copy of the machine state.
func (cpu *Cpu) Snapshot() (snap *Snapshot) {
	snap = &Snapshot{
		Pc:       cpu.Pc,
		Register: cpu.Register,
		Stack:    slices.Clone(cpu.Stack.Data),
		Memory:   slices.Clone(cpu.Memory[:]),
	}

	return
}

// Restore replaces the machine state with a snapshot. The machine is
// unchanged if the snapshot is invalid.
func (cpu *Cpu) Restore(snap *Snapshot) (err error) {
	err = snap.Validate()
	if err != nil {
		return
	}

	cpu.Pc = snap.Pc
	cpu.Register = snap.Register
	cpu.Stack.Data = slices.Clone(snap.Stack)
	copy(cpu.Memory[:], snap.Memory)

	if cpu.Verbose {
		log.Infof("restored snapshot at pc %d", cpu.Pc)
	}

	return
}

// SaveSnapshot writes the machine state to w.
func (cpu *Cpu) SaveSnapshot(w io.Writer) (err error) {
	err = cborEncMode.NewEncoder(w).Encode(cpu.Snapshot())
	return
}

// LoadSnapshot reads a machine state from r, and restores it.
func (cpu *Cpu) LoadSnapshot(r io.Reader) (err error) {
	var snap Snapshot
	err = cbor.NewDecoder(r).Decode(&snap)
	if err != nil {
		err = errors.Join(ErrSnapshotInvalid, err)
		return
	}

	err = cpu.Restore(&snap)
	return
}
