package io

import (
	"errors"

	"github.com/ezrec/synvm/translate"
)

var f = translate.From

var (
	// Sink errors
	ErrInputEmpty  = errors.New(f("input empty"))
	ErrInputClosed = errors.New(f("input closed"))
)

// ErrReplay is a failure to access the replay log.
type ErrReplay struct {
	Path string
	Err  error
}

func (err *ErrReplay) Error() string {
	return f("replay %v: %v", err.Path, err.Err)
}

func (err *ErrReplay) Unwrap() error {
	return err.Err
}
