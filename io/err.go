package io

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrChannelClosed = errors.New(f("channel closed"))

	// Image errors
	ErrImageEmpty = errors.New(f("image empty"))
)

// ErrParseValue is a word in an image or on a tape that is not a number.
type ErrParseValue struct {
	Index int
	Word  string
}

func (err *ErrParseValue) Error() string {
	return f("value %d '%v' is not a number", err.Index, err.Word)
}
