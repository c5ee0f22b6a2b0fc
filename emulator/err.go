package emulator

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	ErrProgramEmpty = errors.New(f("program empty"))
	ErrNotFound     = errors.New(f("no solution found"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Ip     int64
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("ip %d %v", err.Ip, err.Err)
	}
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrAmplifier indicates which machine of a chain failed.
type ErrAmplifier struct {
	Index int
	Err   error
}

func (err *ErrAmplifier) Error() string {
	return f("amplifier %d %v", err.Index, err.Err)
}

func (err *ErrAmplifier) Unwrap() error {
	return err.Err
}
