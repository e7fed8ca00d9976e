package config

import (
	"errors"

	"github.com/ezrec/synvm/translate"
)

var f = translate.From

var (
	ErrKeyUnknown = errors.New(f("unknown configuration key"))
)

// ErrPatchAddress is a patch table key that is not a memory address.
type ErrPatchAddress string

func (err ErrPatchAddress) Error() string {
	return f("patch address '%v' invalid", string(err))
}

// ErrPatch is a patch table entry that does not assemble.
type ErrPatch struct {
	Address uint16
	Text    string
	Err     error
}

func (err *ErrPatch) Error() string {
	return f("patch %d '%v': %v", err.Address, err.Text, err.Err)
}

func (err *ErrPatch) Unwrap() error {
	return err.Err
}
